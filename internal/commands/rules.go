package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tvabook-dev/tvabook/internal/admin"
)

const cliActor = "cli"

func newRulesCommand() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
	}
	rulesCmd.AddCommand(newRulesListCommand())
	rulesCmd.AddCommand(newRulesSetCommand())
	rulesCmd.AddCommand(newRulesRemoveCommand())
	rulesCmd.AddCommand(newRulesCheckCommand())
	return rulesCmd
}

func newRulesListCommand() *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in classification order",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, cfg, store, err := loadWorkdir(workDir)
			if err != nil {
				return err
			}
			svc := admin.NewService(store, nil, absDir, newLogger(cfg.LogLevel))

			for _, r := range svc.List() {
				fmt.Printf("%-16s %6s%%  %s\n", r.Category, r.Rate.String(), strings.Join(r.Keywords, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", ".", "working directory")
	return cmd
}

func newRulesSetCommand() *cobra.Command {
	var workDir string
	var keywords []string
	var rateStr string

	cmd := &cobra.Command{
		Use:   "set <category>",
		Short: "Create or update a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, cfg, store, err := loadWorkdir(workDir)
			if err != nil {
				return err
			}
			svc := admin.NewService(store, nil, absDir, newLogger(cfg.LogLevel))

			payload := admin.Payload{}
			if rateStr != "" {
				rate, err := decimal.NewFromString(rateStr)
				if err != nil {
					return fmt.Errorf("invalid rate %q: %w", rateStr, err)
				}
				payload.Rate = &rate
			}
			if cmd.Flags().Changed("keywords") {
				payload.Keywords = keywords
			}

			category := args[0]
			if _, err := svc.Get(category); err == nil {
				updated, err := svc.Update(cliActor, category, payload)
				if err != nil {
					return err
				}
				fmt.Printf("updated %s: rate=%s keywords=%s\n", updated.Category, updated.Rate, strings.Join(updated.Keywords, ", "))
				return nil
			}

			created, err := svc.Create(cliActor, category, payload)
			if err != nil {
				return err
			}
			fmt.Printf("created %s: rate=%s keywords=%s\n", created.Category, created.Rate, strings.Join(created.Keywords, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", ".", "working directory")
	cmd.Flags().StringVar(&rateStr, "rate", "", "VAT rate percentage (0-100)")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "matching keywords")
	return cmd
}

func newRulesRemoveCommand() *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "rm <category>",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, cfg, store, err := loadWorkdir(workDir)
			if err != nil {
				return err
			}
			svc := admin.NewService(store, nil, absDir, newLogger(cfg.LogLevel))

			if err := svc.Delete(cliActor, args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", ".", "working directory")
	return cmd
}

func newRulesCheckCommand() *cobra.Command {
	var workDir string
	var keywords []string
	var rateStr string
	var kind string

	cmd := &cobra.Command{
		Use:   "check <category>",
		Short: "Dry-run validate a rule mutation without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, cfg, store, err := loadWorkdir(workDir)
			if err != nil {
				return err
			}
			svc := admin.NewService(store, nil, absDir, newLogger(cfg.LogLevel))

			payload := admin.Payload{}
			if rateStr != "" {
				rate, err := decimal.NewFromString(rateStr)
				if err != nil {
					return fmt.Errorf("invalid rate %q: %w", rateStr, err)
				}
				payload.Rate = &rate
			}
			if cmd.Flags().Changed("keywords") {
				payload.Keywords = keywords
			}

			result := svc.Validate(kind, args[0], payload)
			if result.Valid {
				fmt.Println("valid")
				return nil
			}
			for _, e := range result.Errors {
				fmt.Println(e)
			}
			return fmt.Errorf("%d validation errors", len(result.Errors))
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", ".", "working directory")
	cmd.Flags().StringVar(&kind, "kind", "create", "operation kind: create, update or delete")
	cmd.Flags().StringVar(&rateStr, "rate", "", "VAT rate percentage (0-100)")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "matching keywords")
	return cmd
}
