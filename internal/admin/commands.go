package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Opener connects an Admin to the database named by dsn.
type Opener func(ctx context.Context, dsn string) (*Admin, error)

// OpenPostgres is the production Opener.
func OpenPostgres(ctx context.Context, dsn string) (*Admin, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: database DSN is not set (use --dsn or DATABASE_DSN)", common.ErrConfig)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return New(db, repomanager.NewPostgresRepositoryManager()), nil
}

type cli struct {
	open Opener
	in   io.Reader
	dsn  string
}

func ok(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}

// withAdmin opens a connection for the duration of fn.
func (c *cli) withAdmin(cmd *cobra.Command, fn func(ctx context.Context, a *Admin) error) error {
	a, err := c.open(cmd.Context(), c.dsn)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

// NewRootCommand builds the vaultadm command tree. in is used by encrypt
// when no terminal is attached.
func NewRootCommand(open Opener, in io.Reader) *cobra.Command {
	c := &cli{open: open, in: in}

	root := &cobra.Command{
		Use:   "vaultadm",
		Short: "vaultkeeper administration",
		Long: `vaultadm performs operator tasks against the vaultkeeper database.

Examples:
  # Generate a master encryption key
  vaultadm genkey

  # Define the premium plan
  vaultadm plan put --name Premium --price 4.99 --slots 100 --gb 20 --ad-free

  # Disable an account
  vaultadm user disable alice@example.com`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.dsn, "dsn", os.Getenv("DATABASE_DSN"), "PostgreSQL DSN (default $DATABASE_DSN)")

	root.AddCommand(
		c.genkeyCmd(),
		c.migrateCmd(),
		c.planCmd(),
		c.packCmd(),
		c.userCmd(),
		c.statsCmd(),
		c.encryptCmd(),
	)
	return root
}

func (c *cli) genkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey",
		Short: "Print a new base64 master encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cryptox.GenerateKey())
			return nil
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAdmin(cmd, func(ctx context.Context, a *Admin) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	}
}

func (c *cli) planCmd() *cobra.Command {
	var p models.Plan
	put := &cobra.Command{
		Use:   "put",
		Short: "Create or update a subscription plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAdmin(cmd, func(ctx context.Context, a *Admin) error {
				id, err := a.PutPlan(ctx, &p)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "plan %s saved (id %d)", color.CyanString(p.Name), id)
				return nil
			})
		},
	}
	put.Flags().StringVar(&p.Name, "name", "", "plan name (unique)")
	put.Flags().Float64Var(&p.MonthlyPrice, "price", 0, "monthly price")
	put.Flags().IntVar(&p.BaseSlots, "slots", 10, "account slots")
	put.Flags().IntVar(&p.BaseGB, "gb", 1, "storage in GB")
	put.Flags().IntVar(&p.BaseNotes, "notes", 10, "notes")
	put.Flags().IntVar(&p.BaseReminders, "reminders", 10, "reminders")
	put.Flags().BoolVar(&p.AdFree, "ad-free", false, "plan hides ads")
	_ = put.MarkFlagRequired("name")

	plan := &cobra.Command{Use: "plan", Short: "Manage subscription plans"}
	plan.AddCommand(put)
	return plan
}

func (c *cli) packCmd() *cobra.Command {
	var p models.Pack
	put := &cobra.Command{
		Use:   "put",
		Short: "Create or update an add-on pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAdmin(cmd, func(ctx context.Context, a *Admin) error {
				id, err := a.PutPack(ctx, &p)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "pack %s saved (id %d)", color.CyanString(p.Name), id)
				return nil
			})
		},
	}
	put.Flags().StringVar(&p.Name, "name", "", "pack name (unique)")
	put.Flags().Float64Var(&p.Price, "price", 0, "price")
	put.Flags().IntVar(&p.ExtraSlots, "slots", 0, "extra account slots")
	put.Flags().IntVar(&p.ExtraGB, "gb", 0, "extra storage in GB")
	put.Flags().IntVar(&p.ExtraNotes, "notes", 0, "extra notes")
	put.Flags().IntVar(&p.ExtraReminders, "reminders", 0, "extra reminders")
	_ = put.MarkFlagRequired("name")

	pack := &cobra.Command{Use: "pack", Short: "Manage add-on packs"}
	pack.AddCommand(put)
	return pack
}

func (c *cli) userCmd() *cobra.Command {
	set := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <email>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withAdmin(cmd, func(ctx context.Context, a *Admin) error {
					err := a.SetUserActive(ctx, args[0], active)
					if errors.Is(err, common.ErrorNotFound) {
						return fmt.Errorf("no account registered under %s", args[0])
					}
					if err != nil {
						return err
					}
					ok(cmd.OutOrStdout(), "%s %sd", args[0], use)
					return nil
				})
			},
		}
	}

	user := &cobra.Command{Use: "user", Short: "Manage accounts"}
	user.AddCommand(
		set("disable", "Block logins for an account", false),
		set("enable", "Allow logins for an account again", true),
	)
	return user
}

func (c *cli) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show user, revenue and ad statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAdmin(cmd, func(ctx context.Context, a *Admin) error {
				st, err := a.Stats(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(st)
				}
				bold := color.New(color.Bold).SprintFunc()
				fmt.Fprintf(w, "%s %d\n", bold("Users:        "), st.Users)
				fmt.Fprintf(w, "%s %d\n", bold("Premium users:"), st.PremiumUsers)
				fmt.Fprintf(w, "%s %.2f\n", bold("MRR:          "), st.MRR)
				fmt.Fprintf(w, "%s %d\n", bold("Ad views:     "), st.AdViews)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func (c *cli) encryptCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a value under the master key (for seeding data)",
		Long: `Reads a value without echo and prints its ciphertext token.
The master key is taken from --key or $ENCRYPTION_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := cryptox.NewBoxFromBase64(key)
			if err != nil {
				return err
			}
			value, err := ReadSecret(c.in, cmd.ErrOrStderr(), "Value: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(value)

			token, err := box.EncryptText(string(value))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", os.Getenv("ENCRYPTION_KEY"), "base64 master key (default $ENCRYPTION_KEY)")
	return cmd
}
