package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"staticnotes/internal/notes/app/export"
	"staticnotes/internal/notes/app/search"
	"staticnotes/internal/notes/domain/entities"
)

// ErrBodyAndFile - тело заметки задано сразу двумя способами.
var ErrBodyAndFile = errors.New("use either --body or --file, not both")

func (c *cli) listCmd() *cobra.Command {
	var (
		tags    []string
		query   string
		sortBy  string
		asJSON  bool
		refresh bool
		idsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, optionally filtered by tags and a search query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if refresh {
				svc, err := c.notes(cmd.Context())
				if err != nil {
					return err
				}
				if err := svc.Invalidate(cmd.Context()); err != nil {
					return err
				}
			}

			if idsOnly {
				return c.printIDs(cmd)
			}

			st, err := c.store(cmd.Context())
			if err != nil {
				return err
			}

			st.SetQuery(query)
			st.SetSort(search.ParseSortMode(sortBy))
			for _, t := range tags {
				st.ToggleTag(t)
			}
			notes := st.Visible()

			if asJSON {
				return writeJSON(c.stdout, notes)
			}

			w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTAGS\tUPDATED")
			for _, n := range notes {
				updated := ""
				if t := n.LastModified(); !t.IsZero() {
					updated = t.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.DisplayTitle(), strings.Join(n.Tags, ","), updated)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "only notes carrying every given tag")
	cmd.Flags().StringVarP(&query, "query", "q", "", "free text search over title, body and tags")
	cmd.Flags().StringVar(&sortBy, "sort", string(search.SortUpdated), "sort order: updated, created or title")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print notes as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop cached notes before loading")
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "print only note ids, one per line")
	cmd.MarkFlagsMutuallyExclusive("ids", "json")
	cmd.MarkFlagsMutuallyExclusive("ids", "tag")
	cmd.MarkFlagsMutuallyExclusive("ids", "query")
	return cmd
}

func (c *cli) printIDs(cmd *cobra.Command) error {
	svc, err := c.notes(cmd.Context())
	if err != nil {
		return err
	}
	ids, err := svc.ListNoteIDs(cmd.Context())
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(c.stdout, id)
	}
	return nil
}

func (c *cli) getCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a single note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.notes(cmd.Context())
			if err != nil {
				return err
			}

			res, err := svc.GetNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.warnStale(res.Stale)

			if asJSON {
				return writeJSON(c.stdout, res.Note)
			}
			data, err := export.Marshal(res.Note)
			if err != nil {
				return err
			}
			_, err = c.stdout.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the note as JSON")
	return cmd
}

func (c *cli) createCmd() *cobra.Command {
	var (
		title string
		tags  []string
		body  string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, _, err := readBody(cmd, body, file)
			if err != nil {
				return err
			}

			svc, err := c.notes(cmd.Context())
			if err != nil {
				return err
			}
			note, err := svc.CreateNote(cmd.Context(), entities.NewDraft(title, text, tags))
			if err != nil {
				return err
			}

			fmt.Fprintln(c.stdout, note.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "note tag, may be repeated")
	cmd.Flags().StringVar(&body, "body", "", "markdown body")
	cmd.Flags().StringVar(&file, "file", "", "read the markdown body from a file, - for stdin")
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var (
		title string
		tags  []string
		body  string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch entities.NotePatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("tag") {
				patch.Tags = &tags
			}

			text, ok, err := readBody(cmd, body, file)
			if err != nil {
				return err
			}
			if ok {
				patch.BodyMarkdown = &text
			}

			svc, err := c.notes(cmd.Context())
			if err != nil {
				return err
			}
			note, err := svc.UpdateNote(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.stdout, note.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags, may be repeated; --tag= clears them")
	cmd.Flags().StringVar(&body, "body", "", "new markdown body")
	cmd.Flags().StringVar(&file, "file", "", "read the new body from a file, - for stdin")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.notes(cmd.Context())
			if err != nil {
				return err
			}
			// Удаление отсутствующей заметки считается выполненным.
			err = svc.DeleteNote(cmd.Context(), args[0])
			if errors.Is(err, entities.ErrNotFound) {
				return nil
			}
			return err
		},
	}
}

func (c *cli) tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "Print the tag cloud with note counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.store(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			for _, tc := range st.Tags() {
				fmt.Fprintf(w, "%s\t%d\n", tc.Tag, tc.Count)
			}
			return w.Flush()
		},
	}
}

// readBody возвращает тело из --body или --file и признак того, что оно задано.
func readBody(cmd *cobra.Command, body, file string) (string, bool, error) {
	bodySet := cmd.Flags().Changed("body")
	fileSet := cmd.Flags().Changed("file")

	switch {
	case bodySet && fileSet:
		return "", false, ErrBodyAndFile
	case bodySet:
		return body, true, nil
	case !fileSet:
		return "", false, nil
	}

	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read note body: %w", err)
	}
	return string(data), true, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
