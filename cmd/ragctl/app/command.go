// Package app implements the ragctl command tree.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/docutil"
	"github.com/kart-io/sentinel-rag/pkg/app"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

type globalOptions struct {
	server  string
	output  string
	timeout time.Duration
	retries int
}

// NewCommand builds the root ragctl command writing results to out.
func NewCommand(out io.Writer) *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "ragctl",
		Short:         "Command line client for the RAG service",
		Version:       app.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch g.output {
			case "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (json, yaml)", g.output)
			}
		},
	}
	cmd.SetOut(out)

	fs := cmd.PersistentFlags()
	fs.StringVar(&g.server, "server", envOr("RAGCTL_SERVER", "http://localhost:8000"), "RAG service base URL")
	fs.StringVarP(&g.output, "output", "o", "json", "Output format (json, yaml)")
	fs.DurationVar(&g.timeout, "timeout", 2*time.Minute, "Request timeout")
	fs.IntVar(&g.retries, "retries", 2, "Retries on transport errors and 5xx responses")

	cmd.AddCommand(
		newIngestCommand(g),
		newSearchCommand(g),
		newGetCommand(g, "stats", "Show index statistics", "/api/v1/statistics"),
		newGetCommand(g, "indices", "List indices in the vector store", "/api/v1/indices"),
		newGetCommand(g, "health", "Show service health", "/health"),
		newGetCommand(g, "info", "Show service information", "/"),
	)
	return cmd
}

func (g *globalOptions) client() *Client {
	return NewClient(g.server, g.timeout, g.retries)
}

func newIngestCommand(g *globalOptions) *cobra.Command {
	var (
		name      string
		text      string
		sourceURL string
		exts      []string
	)

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a UTF-8 text file, a directory of text files or inline text",
		Example: `  ragctl ingest notes.txt
  ragctl ingest ./docs --ext .md,.txt
  ragctl ingest --name faq --text "Go is a programming language"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := g.client()

			if len(args) == 1 {
				if text != "" {
					return errors.New("use either a file or --text, not both")
				}
				if docutil.DirExists(args[0]) {
					return ingestDir(cmd, g, c, args[0], exts, sourceURL)
				}
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				data, err := c.IngestFile(ctx, args[0], f, sourceURL)
				if err != nil {
					return err
				}
				return g.print(cmd.OutOrStdout(), data)
			}

			if strings.TrimSpace(text) == "" {
				return errors.New("a file argument or --text is required")
			}
			if name == "" {
				return errors.New("--name is required with --text")
			}
			data, err := c.IngestText(ctx, name, text, sourceURL)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Document name for --text")
	cmd.Flags().StringVar(&text, "text", "", "Inline document content")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Source URL stored with every chunk")
	cmd.Flags().StringSliceVar(&exts, "ext", docutil.DefaultExtensions, "File extensions collected when ingesting a directory")
	return cmd
}

// ingestDir 逐个上传目录下的文本文件，遇到第一个失败即停止。
func ingestDir(cmd *cobra.Command, g *globalOptions, c *Client, dir string, exts []string, sourceURL string) error {
	files, err := docutil.FindFiles(dir, exts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matching %v under %s", exts, dir)
	}

	results := make([]any, 0, len(files))
	for _, path := range files {
		content, err := docutil.ReadText(path)
		if err != nil {
			return err
		}
		data, err := c.IngestFile(cmd.Context(), path, strings.NewReader(content), sourceURL)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, data)
	}
	return g.print(cmd.OutOrStdout(), results)
}

func newSearchCommand(g *globalOptions) *cobra.Command {
	var (
		topK   int
		useLLM bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := g.client().Search(cmd.Context(), strings.Join(args, " "), topK, useLLM)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (server default when 0)")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "Generate an answer from the top results")
	return cmd
}

func newGetCommand(g *globalOptions, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := g.client().Get(cmd.Context(), path)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), data)
		},
	}
}

func (g *globalOptions) print(w io.Writer, data any) error {
	var (
		b   []byte
		err error
	)
	if g.output == "yaml" {
		b, err = yaml.Marshal(data)
	} else {
		b, err = json.MarshalIndent(data, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

