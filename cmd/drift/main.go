// cmd/drift/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"drift/internal/config"
	"drift/internal/diff"
	"drift/internal/repo"
	"drift/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger, _ = zap.NewDevelopment()

var rootCmd = &cobra.Command{
	Use:   "drift",
	Short: "Drift is a content-tracking toolkit built around its diff core",
	Long: `Drift tracks a working directory against a staged index and stored
snapshots, and renders the differences between any two of the three as
name-status lists or unified patches.`,
}

func openRepo() (*repo.Repository, *config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("getting current directory: %w", err)
	}
	root, err := repo.Find(dir)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	r, err := repo.Open(root, logger)
	if err != nil {
		return nil, nil, err
	}
	return r, cfg, nil
}

func diffOptions(cfg *config.Config) *diff.Options {
	return &diff.Options{
		ContextLines:   cfg.Diff.ContextLines,
		InterhunkLines: cfg.Diff.InterhunkLines,
		SrcPrefix:      cfg.Diff.SrcPrefix,
		DstPrefix:      cfg.Diff.DstPrefix,
	}
}

func printColored(origin diff.Origin, line string) error {
	switch origin {
	case diff.OriginAddition:
		color.New(color.FgGreen).Print(line)
	case diff.OriginDeletion:
		color.New(color.FgRed).Print(line)
	case diff.OriginHunkHdr:
		color.New(color.FgCyan).Print(line)
	default:
		fmt.Print(line)
	}
	return nil
}

func printStatusLine(_ diff.Origin, line string) error {
	if line == "" {
		return nil
	}
	switch line[0] {
	case 'A':
		color.New(color.FgGreen).Print(line)
	case 'D':
		color.New(color.FgRed).Print(line)
	case 'M':
		color.New(color.FgYellow).Print(line)
	default:
		fmt.Print(line)
	}
	return nil
}

func init() {
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Drift repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			r, err := repo.Init(dir, logger)
			if err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}
			defer r.Close()
			fmt.Println("Initialized empty Drift repository in", dir)
			return nil
		},
	}

	var stageCmd = &cobra.Command{
		Use:   "stage [paths...]",
		Short: "Record paths in the index",
		Long:  `Stages the specified paths. Use '.' to stage everything.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.Stage(args); err != nil {
				return fmt.Errorf("staging paths: %w", err)
			}
			return nil
		},
	}

	var snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Store the index as a tree snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()
			oid, err := r.WriteTree()
			if err != nil {
				return fmt.Errorf("writing tree: %w", err)
			}
			if err := r.SetHead(oid); err != nil {
				return fmt.Errorf("recording snapshot: %w", err)
			}
			fmt.Println("Snapshot", oid.Short())
			return nil
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the working directory status",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cfg, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()
			return runStatus(r, cfg)
		},
	}

	var staged, nameStatus, reverse bool
	var diffCmd = &cobra.Command{
		Use:   "diff",
		Short: "Show changes as a unified patch",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cfg, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			opts := diffOptions(cfg)
			if reverse {
				opts.Flags |= diff.Reverse
			}

			var list *diff.List
			if staged {
				head, err := r.Head()
				if err != nil {
					if errors.Is(err, repo.ErrNoHead) {
						return fmt.Errorf("no snapshot to diff against; run 'drift snapshot' first")
					}
					return err
				}
				tree, err := r.Tree(head)
				if err != nil {
					return fmt.Errorf("loading snapshot tree: %w", err)
				}
				list, err = diff.IndexToTree(r, opts, tree)
				if err != nil {
					return err
				}
			} else {
				list, err = diff.WorkdirToIndex(r, opts)
				if err != nil {
					return err
				}
			}

			if nameStatus {
				return list.PrintCompact(printStatusLine)
			}
			return list.PrintPatch(printColored)
		},
	}
	diffCmd.Flags().BoolVar(&staged, "staged", false, "diff the index against the last snapshot")
	diffCmd.Flags().BoolVar(&nameStatus, "name-status", false, "print one name-status line per change")
	diffCmd.Flags().BoolVar(&reverse, "reverse", false, "swap the sides of the comparison")

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-render the status whenever the working directory changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cfg, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			w, err := watch.New(r.Workdir(), repo.MarkerDir, logger)
			if err != nil {
				return err
			}
			defer w.Close()
			w.Start()

			if err := runStatus(r, cfg); err != nil {
				return err
			}
			for {
				select {
				case path := <-w.Changes:
					logger.Debug("change detected", zap.String("path", path))
					fmt.Println("---")
					if err := runStatus(r, cfg); err != nil {
						return err
					}
				case err := <-w.Errors:
					logger.Warn("watch error", zap.Error(err))
				}
			}
		},
	}

	rootCmd.AddCommand(initCmd, stageCmd, snapshotCmd, statusCmd, diffCmd, watchCmd)
}

func runStatus(r *repo.Repository, cfg *config.Config) error {
	list, err := diff.WorkdirToIndex(r, diffOptions(cfg))
	if err != nil {
		return err
	}
	if list.Len() == 0 {
		fmt.Println("clean")
		return nil
	}
	return list.PrintCompact(printStatusLine)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
