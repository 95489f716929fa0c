package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tamil-assistant/internal/conversation"
	"tamil-assistant/internal/knowledge"
	"tamil-assistant/internal/tui"
)

// endOfDocument terminates typed input for docs create.
const endOfDocument = "முற்றும்"

func newBuildCmd(s *session) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build or load the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.app.Knowledge.Build(cmd.Context(), force); err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			md := s.app.Knowledge.Metadata()
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents, %d chunks.\n", md.DocumentCount, md.ChunkCount)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "rebuild even if an index exists")
	return cmd
}

func newAskCmd(s *session) *cobra.Command {
	var speak bool
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := s.app.EnsureKnowledge(ctx); err != nil {
				s.app.Log.Warn().Err(err).Msg("knowledge base unavailable")
			}
			reply := s.app.Conversation.Respond(ctx, strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			if speak {
				if _, err := s.app.Speak(ctx, reply.Text); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "speak the answer aloud")
	return cmd
}

func newSearchCmd(s *session) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Show the raw passages matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := s.app.EnsureKnowledge(ctx); err != nil {
				return err
			}
			results, err := s.app.Knowledge.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s #%d (%.3f)\n    %s\n", i+1, r.Source, r.ChunkNumber, r.Score, r.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", knowledge.DefaultTopK, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func newChatCmd(s *session) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := s.app.EnsureKnowledge(ctx); err != nil {
				s.app.Log.Warn().Err(err).Msg("knowledge base unavailable")
			}
			if plain {
				return plainChat(cmd, s)
			}
			m := tui.New(ctx, s.app.Config.AppName, s.app.Conversation, s.app.Knowledge, s.app.Speaker)
			_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line-based chat without the full-screen interface")
	return cmd
}

func plainChat(cmd *cobra.Command, s *session) error {
	ctx := cmd.Context()
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !sc.Scan() {
			fmt.Fprintln(cmd.OutOrStdout())
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		if q == "" {
			continue
		}
		reply := s.app.Conversation.Respond(ctx, q)
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		if reply.Intent == conversation.IntentExit || ctx.Err() != nil {
			return nil
		}
	}
}

func newListenCmd(s *session) *cobra.Command {
	var stream bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run the voice assistant loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if stream {
				return s.app.Stream(ctx, func(text string) { fmt.Fprintln(cmd.OutOrStdout(), text) })
			}
			if err := s.app.EnsureKnowledge(ctx); err != nil {
				s.app.Log.Warn().Err(err).Msg("knowledge base unavailable")
			}
			return s.app.Listener(func(heard string, reply conversation.Reply) {
				fmt.Fprintf(cmd.OutOrStdout(), "நீங்கள்: %s\nஉதவியாளர்: %s\n", heard, reply.Text)
			}).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "print live transcription only")
	return cmd
}

func newStatsCmd(s *session) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if s.app.Knowledge.Exists() {
				if err := s.app.Knowledge.Load(ctx); err != nil {
					s.app.Log.Warn().Err(err).Msg("index not loaded")
				}
			}
			st := s.app.Knowledge.Stats(ctx)
			if asJSON {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Documents: %d\nChunks: %d\n", st.DocumentCount, st.ChunkCount)
			if st.LastUpdated != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Last updated: %s\n", st.LastUpdated.Format(time.DateTime))
			}
			if st.CollectionSize != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Index size: %d\n", *st.CollectionSize)
			}
			for _, d := range st.Documents {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d chunks)\n", d.Name, d.Chunks)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newClearCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the index and reset metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.app.Knowledge.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Knowledge base cleared.")
			return nil
		},
	}
}

func newDocsCmd(s *session) *cobra.Command {
	docs := &cobra.Command{
		Use:   "docs",
		Short: "Manage the document folder",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List supported documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := s.app.Extractor.List(s.app.Config.Paths.Documents)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
				return nil
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %8d bytes  %s\n", r.Name, r.Size, r.ModifiedAt.Format(time.DateTime))
			}
			return nil
		},
	}

	analyze := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Show statistics and a summary of one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := s.app.Analyzer.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "File: %s\nOriginal size: %d\nCleaned size: %d\nChunks: %d\nTamil characters: %d\nWords: %d\n",
				res.FileName, res.OriginalSize, res.CleanedSize, res.ChunkCount, res.TamilCharCount, res.WordCount)
			fmt.Fprintf(cmd.OutOrStdout(), "Sample: %s\n", res.Sample)
			if res.Summary != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Summary: %s\n", res.Summary)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Copy a document into the folder and rebuild",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := s.app.AddDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", dest)
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a text document from typed lines",
		Long:  "Reads lines from standard input until a line containing only " + endOfDocument + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var lines []string
			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				line := sc.Text()
				if strings.TrimSpace(line) == endOfDocument {
					break
				}
				lines = append(lines, line)
			}
			if err := sc.Err(); err != nil {
				return err
			}
			dest, err := s.app.CreateDocument(cmd.Context(), args[0], lines)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", dest)
			return nil
		},
	}

	docs.AddCommand(list, analyze, add, create)
	return docs
}

func newSpeakCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "speak <text...>",
		Short: "Speak text aloud",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.app.Speaker == nil {
				return fmt.Errorf("voice output is disabled")
			}
			path, err := s.app.Speak(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			s.app.Log.Debug().Str("audio", path).Msg("spoken")
			return nil
		},
	}
}
