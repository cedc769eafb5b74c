// Package main provides a CLI for the Da Vinci membership backends.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/eshdavinci/davinci-api/pkg/client"
)

const (
	backendDirectus = "directus"
	backendLassie   = "lassie"
)

var (
	// Path given with --config; empty means the default search path.
	configPath string

	// Resolved before every command runs.
	cfg    settings
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "davinci",
	Short: "Da Vinci membership CLI",
	Long: `A command-line client for the Da Vinci membership administration.

This tool allows you to:
  - Look up members and their names
  - Check and set member PINs
  - Register new members
  - Inspect memberships

Both the Directus and the legacy Lassie backend are supported.

Environment variables:
  DAVINCI_BACKEND - directus or lassie (default: directus)
  DAVINCI_URL     - API base URL
  DAVINCI_TOKEN   - Directus static token
  DAVINCI_KEY     - Lassie API key
  DAVINCI_SECRET  - Lassie API secret

A .env file in the working directory is loaded first. Settings may also be
stored in davinci.yaml (see "davinci config init").`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadSettings(cmd, configPath); err != nil {
			return err
		}
		logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("backend", backendDirectus, "Backend to talk to (directus or lassie)")
	flags.String("url", "", "API base URL (default depends on backend)")
	flags.String("token", "", "Directus static token (or DAVINCI_TOKEN env)")
	flags.String("key", "", "Lassie API key (or DAVINCI_KEY env)")
	flags.String("secret", "", "Lassie API secret (or DAVINCI_SECRET env)")
	flags.Duration("timeout", 30*time.Second, "Request timeout")
	flags.Int("retries", 0, "Retries for failed read requests")
	flags.Bool("json", false, "Output as JSON")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.StringVar(&configPath, "config", "", "Config file (default: davinci.yaml in the user config dir or cwd)")

	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(setPinCmd)
	rootCmd.AddCommand(hasToSetPinCmd)
	rootCmd.AddCommand(createPersonCmd)
	rootCmd.AddCommand(membershipsCmd)
	rootCmd.AddCommand(configCmd)
}

// newClient creates a client for the configured backend
func newClient(extra ...client.Option) (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithMaxRetries(cfg.Retries),
		client.WithLogger(logger),
	}
	if cfg.URL != "" {
		opts = append(opts, client.WithBaseURL(cfg.URL))
	}
	opts = append(opts, extra...)

	switch cfg.Backend {
	case backendDirectus:
		return client.NewDirectus(cfg.Token, opts...)
	case backendLassie:
		return client.NewLassie(cfg.Key, cfg.Secret, opts...)
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, backendDirectus, backendLassie)
	}
}

// requestContext bounds a command's requests by the configured timeout
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.Timeout)
}

// outputJSON prints the value as JSON
func outputJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid member id %q", arg)
	}
	return id, nil
}

// readPIN reads a PIN from stdin, ignoring surrounding whitespace
func readPIN(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	pin := strings.TrimSpace(string(data))
	if pin == "" {
		return "", errors.New("no PIN provided on stdin")
	}
	return pin, nil
}

// memberError turns a lookup failure into a user-facing error
func memberError(op string, id int, err error) error {
	switch {
	case client.IsNotFound(err):
		return fmt.Errorf("member %d not found", id)
	case client.IsPermissionDenied(err):
		return fmt.Errorf("permission denied: %w", err)
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}

// Name command
var nameCmd = &cobra.Command{
	Use:   "name <id>",
	Short: "Print a member's display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		name, err := c.GetNameByID(ctx, id)
		if err != nil {
			return memberError("name lookup", id, err)
		}

		if cfg.JSON {
			return outputJSON(cmd, map[string]any{"id": id, "name": name})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
		return err
	},
}

// Names command
var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "List member names by id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		active, _ := cmd.Flags().GetBool("active")

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		names, err := c.GetListOfNames(ctx, active)
		if err != nil {
			return fmt.Errorf("failed to list names: %w", err)
		}

		if cfg.JSON {
			return outputJSON(cmd, names)
		}

		ids := make([]int, 0, len(names))
		for id := range names {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		out := cmd.OutOrStdout()
		for _, id := range ids {
			fmt.Fprintf(out, "%d\t%s\n", id, names[id])
		}
		return nil
	},
}

func init() {
	namesCmd.Flags().Bool("active", false, "Only active members")
}

// Members command
var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List members",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		active, _ := cmd.Flags().GetBool("active")

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		members, err := c.GetMemberList(ctx, active)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}

		if cfg.JSON {
			return outputJSON(cmd, members)
		}

		if len(members) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No members found")
			return nil
		}

		out := cmd.OutOrStdout()
		for _, m := range members {
			status := "active"
			if !m.Active {
				status = "inactive"
			}
			fmt.Fprintf(out, "%d\t%s\t%s\n", m.ID, m.Name(), status)
		}
		return nil
	},
}

func init() {
	membersCmd.Flags().Bool("active", false, "Only active members")
}

// Member command
var memberCmd = &cobra.Command{
	Use:   "member <id>",
	Short: "Show a member's full record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		m, err := c.GetMember(ctx, id)
		if err != nil {
			return memberError("member lookup", id, err)
		}

		if cfg.JSON {
			return outputJSON(cmd, m)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Member %d: %s\n", m.ID, m.Name())
		fmt.Fprintf(out, "  Active: %v\n", m.Active)
		fmt.Fprintf(out, "  Board: %v\n", m.IsBoard)
		fmt.Fprintf(out, "  Institution: %s\n", m.Institution)
		if m.Study != "" {
			fmt.Fprintf(out, "  Study: %s\n", m.Study)
		}
		if m.Generation != "" {
			fmt.Fprintf(out, "  Generation: %s\n", m.Generation)
		}
		if m.Email != "" {
			fmt.Fprintf(out, "  Email: %s\n", m.Email)
		}
		if m.Phone != "" {
			fmt.Fprintf(out, "  Phone: %s\n", m.Phone)
		}
		if m.Address.Street != "" {
			fmt.Fprintf(out, "  Address: %s %s, %s %s\n", m.Address.Street, m.Address.Number, m.Address.PostCode, m.Address.City)
		}

		keys := make([]string, 0, len(m.Meta))
		for k, v := range m.Meta {
			if v != nil {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %v\n", k, m.Meta[k])
		}
		return nil
	},
}

// Auth command
var authCmd = &cobra.Command{
	Use:   "auth <id>",
	Short: "Check a member's PIN",
	Long: `Checks the PIN read from stdin against the member's stored credential.

Example:
  echo 1234 | davinci auth 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		pin, err := readPIN(cmd)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		ok, err := c.Authenticate(ctx, id, pin)
		if err != nil {
			return memberError("authentication", id, err)
		}

		if cfg.JSON {
			if err := outputJSON(cmd, map[string]bool{"authenticated": ok}); err != nil {
				return err
			}
		} else if ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Authenticated")
		}

		if !ok {
			return fmt.Errorf("authentication failed for member %d", id)
		}
		return nil
	},
}

// Set PIN command
var setPinCmd = &cobra.Command{
	Use:   "set-pin <id>",
	Short: "Set a member's PIN",
	Long: `Stores the PIN read from stdin as the member's new credential,
replacing any previous one.

Example:
  echo 1234 | davinci set-pin 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		pin, err := readPIN(cmd)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		ok, err := c.SetNewPassword(ctx, id, pin)
		if err != nil {
			return memberError("setting PIN", id, err)
		}

		if cfg.JSON {
			return outputJSON(cmd, map[string]bool{"updated": ok})
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "PIN set for member %d\n", id)
		return err
	},
}

// Has-to-set-PIN command
var hasToSetPinCmd = &cobra.Command{
	Use:   "has-to-set-pin <id>",
	Short: "Report whether a member still needs a PIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		missing, err := c.HasToSetPassword(ctx, id)
		if err != nil {
			return memberError("credential lookup", id, err)
		}

		if cfg.JSON {
			return outputJSON(cmd, map[string]bool{"has_to_set_pin": missing})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), missing)
		return err
	},
}

// personFile is the YAML (or JSON) document read by create-person.
type personFile struct {
	FirstName   string `yaml:"first_name"`
	Infix       string `yaml:"infix"`
	LastName    string `yaml:"last_name"`
	Phone       string `yaml:"phone"`
	Email       string `yaml:"email"`
	Birthdate   string `yaml:"birthdate"`
	Institution string `yaml:"institution"`
	Study       string `yaml:"study"`
	Address     struct {
		Street  string `yaml:"street"`
		Number  string `yaml:"number"`
		Zip     string `yaml:"zip"`
		City    string `yaml:"city"`
		Country string `yaml:"country"`
	} `yaml:"address"`
}

func (f personFile) toNewPerson() (client.NewPerson, error) {
	p := client.NewPerson{
		FirstName:      f.FirstName,
		Infix:          f.Infix,
		LastName:       f.LastName,
		Phone:          f.Phone,
		Email:          f.Email,
		Institution:    f.Institution,
		Study:          f.Study,
		AddressStreet:  f.Address.Street,
		AddressNumber:  f.Address.Number,
		AddressZip:     f.Address.Zip,
		AddressCity:    f.Address.City,
		AddressCountry: f.Address.Country,
	}
	if f.Birthdate != "" {
		t, err := time.Parse(time.DateOnly, f.Birthdate)
		if err != nil {
			return p, fmt.Errorf("invalid birthdate (use YYYY-MM-DD): %w", err)
		}
		p.Birthdate = t
	}
	return p, nil
}

// Create person command
var createPersonCmd = &cobra.Command{
	Use:   "create-person",
	Short: "Register a new member",
	Long: `Creates a member and its address from a YAML or JSON file.

Example file:
  first_name: Anna
  last_name: Smit
  birthdate: 2004-02-29
  institution: tue
  address:
    street: Kerkstraat
    number: "1"
    zip: 5611AA
    city: Eindhoven`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, _ := cmd.Flags().GetString("file")
		if filePath == "" {
			return fmt.Errorf("--file is required")
		}

		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read person file: %w", err)
		}

		var f personFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("failed to parse person file: %w", err)
		}
		person, err := f.toNewPerson()
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		m, err := c.CreatePerson(ctx, person)
		if err != nil {
			if client.IsPermissionDenied(err) {
				return fmt.Errorf("permission denied: %w", err)
			}
			return fmt.Errorf("failed to create member: %w", err)
		}

		if cfg.JSON {
			return outputJSON(cmd, m)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created member %d: %s\n", m.ID, m.Name())
		return err
	},
}

func init() {
	createPersonCmd.Flags().String("file", "", "Path to a YAML or JSON person file (required)")
}

// Memberships command
var membershipsCmd = &cobra.Command{
	Use:   "memberships <id>",
	Short: "List a member's memberships",
	Long: `Lists the memberships held by a member. With --payable only memberships
that still have to be paid are listed (Lassie only).

These calls use deprecated backend operations.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		payable, _ := cmd.Flags().GetBool("payable")

		c, err := newClient(client.WithDeprecatedOperations())
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		var memberships []client.Membership
		if payable {
			memberships, err = c.GetPayableMembershipsByID(ctx, id)
		} else {
			memberships, err = c.GetMembershipsByID(ctx, id)
		}
		if err != nil {
			if client.IsNotImplemented(err) {
				return fmt.Errorf("not supported by the %s backend", c.Backend())
			}
			return memberError("membership lookup", id, err)
		}

		if cfg.JSON {
			return outputJSON(cmd, map[string]any{"memberships": memberships})
		}

		if len(memberships) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No memberships found")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Memberships (%d):\n", len(memberships))
		for _, ms := range memberships {
			fmt.Fprintf(out, "\n  %s\n", ms.Name)
			fmt.Fprintf(out, "    Active: %v\n", ms.Active)
			fmt.Fprintf(out, "    Fee: %.2f\n", ms.Fee)
			if !ms.ExpiryDate.IsZero() {
				fmt.Fprintf(out, "    Expires: %s\n", ms.ExpiryDate.Format(time.DateOnly))
			}
		}
		return nil
	},
}

func init() {
	membershipsCmd.Flags().Bool("payable", false, "Only memberships that still have to be paid")
}
