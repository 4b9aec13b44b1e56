package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nfa/internal/config"
	"nfa/internal/query"
)

func newAskCmd() *cobra.Command {
	var archivePath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask --archive FILE [question]",
		Short: "Load an archive and answer questions from the terminal",
		Long: `Loads a zipped NF-e archive and answers the question given on the
command line. Without a question, reads questions line by line from
stdin until EOF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runAsk(cmd.Context(), cfg, archivePath, strings.Join(args, " "), asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "path to the NF-e zip archive (required)")
	_ = cmd.MarkFlagRequired("archive")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print full answers as JSON")
	return cmd
}

func runAsk(ctx context.Context, cfg *config.Config, archivePath, question string, asJSON bool, out io.Writer) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	ctrl, cleanup, err := buildController(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	if _, err := ctrl.LoadArchive(ctx, data); err != nil {
		return err
	}

	if desc, err := ctrl.Describe(); err == nil {
		fmt.Fprintln(os.Stderr, desc)
	}

	if question != "" {
		ans, err := ctrl.Ask(ctx, question)
		if err != nil {
			return err
		}
		return printAnswer(out, ans, asJSON)
	}

	sc := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "pergunta> ")
	for sc.Scan() {
		q := strings.TrimSpace(sc.Text())
		if q != "" {
			ans, err := ctrl.Ask(ctx, q)
			if err != nil {
				fmt.Fprintf(os.Stderr, "erro: %v\n", err)
			} else if err := printAnswer(out, ans, asJSON); err != nil {
				return err
			}
		}
		fmt.Fprint(os.Stderr, "pergunta> ")
	}
	fmt.Fprintln(os.Stderr)
	return sc.Err()
}

func printAnswer(out io.Writer, ans *query.Answer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	fmt.Fprintln(out, ans.Text)
	if ans.Table != nil {
		for _, row := range ans.Table.Rows {
			fmt.Fprintf(out, "  %s\n", strings.Join(row, "  "))
		}
	}
	if ans.Explanation != "" {
		fmt.Fprintf(out, "  (%s)\n", ans.Explanation)
	}
	return nil
}
