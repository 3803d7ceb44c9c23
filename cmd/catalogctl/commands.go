package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Tinyu01/library-management-system/internal/book"
	"github.com/spf13/cobra"
)

type serviceOpener func(ctx context.Context) (*book.Service, func(), error)

func newRootCmd(open serviceOpener) *cobra.Command {
	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Manage the library book catalog",
		SilenceUsage: true,
	}

	// withService opens the catalog for the duration of one command.
	withService := func(run func(cmd *cobra.Command, args []string, svc *book.Service) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return run(cmd, args, svc)
		}
	}

	root.AddCommand(
		newListCmd(withService),
		newGetCmd(withService),
		newAddCmd(withService),
		newUpdateCmd(withService),
		newRenameCmd(withService),
		newDeleteCmd(withService),
		newToggleCmd(withService),
		newAvailabilityCmd(withService),
	)
	return root
}

type runWrapper func(run func(cmd *cobra.Command, args []string, svc *book.Service) error) func(*cobra.Command, []string) error

func newListCmd(with runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every book",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, svc *book.Service) error {
			books, err := svc.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), books...)
		}),
	}
}

func newGetCmd(with runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *book.Service) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := svc.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), b)
		}),
	}
}

func newAddCmd(with runWrapper) *cobra.Command {
	var (
		in          book.Input
		unavailable bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, svc *book.Service) error {
			in.Available = !unavailable
			b, err := svc.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), b)
		}),
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "book title")
	cmd.Flags().StringVar(&in.Author, "author", "", "book author")
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "book ISBN")
	cmd.Flags().BoolVar(&unavailable, "unavailable", false, "add the book as checked out")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newUpdateCmd(with runWrapper) *cobra.Command {
	var in book.Input
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace every field of a book",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *book.Service) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := svc.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), b)
		}),
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "book title")
	cmd.Flags().StringVar(&in.Author, "author", "", "book author")
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "book ISBN")
	cmd.Flags().BoolVar(&in.Available, "available", true, "whether the book can be checked out")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newRenameCmd(with runWrapper) *cobra.Command {
	var oldTitle string
	cmd := &cobra.Command{
		Use:   "rename [<id>] <new-title>",
		Short: "Change the title of a book, by id or by --old-title",
		Args:  cobra.RangeArgs(1, 2),
		RunE: with(func(cmd *cobra.Command, args []string, svc *book.Service) error {
			var (
				b   book.Response
				err error
			)
			switch {
			case oldTitle != "" && len(args) == 1:
				b, err = svc.UpdateTitleByOldTitle(cmd.Context(), oldTitle, args[0])
			case oldTitle == "" && len(args) == 2:
				id, perr := parseID(args[0])
				if perr != nil {
					return perr
				}
				b, err = svc.UpdateTitleByID(cmd.Context(), id, args[1])
			default:
				return fmt.Errorf("use either 'rename <id> <new-title>' or 'rename --old-title <title> <new-title>'")
			}
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), b)
		}),
	}
	cmd.Flags().StringVar(&oldTitle, "old-title", "", "current title of the book to rename")
	return cmd
}

func newDeleteCmd(with runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *book.Service) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted book %d\n", id)
			return err
		}),
	}
}

func newToggleCmd(with runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Check a book in or out",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *book.Service) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := svc.ToggleAvailability(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), b)
		}),
	}
}

func newAvailabilityCmd(with runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "availability <title>",
		Short: "Tell whether a title can be checked out",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *book.Service) error {
			status, err := svc.CheckAvailability(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), status)
			return err
		}),
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}

func printBooks(out io.Writer, books ...book.Response) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tISBN\tAVAILABLE\tUPDATED")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n",
			b.ID, b.Title, b.Author, b.ISBN, b.Available, b.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
