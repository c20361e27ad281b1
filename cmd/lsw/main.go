package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"luschuster/internal/config"
	"luschuster/internal/csrf"
	"luschuster/internal/forms"
	"luschuster/internal/notify"
	"luschuster/internal/ratelimit"
	"luschuster/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "lsw",
	Short: "Luschuster web backend",
	Long: `lsw runs the Luschuster marketing site backend: the CSRF handshake and the
validated contact and quote submission endpoints. Besides serving, it can
issue and check tokens and describe the form schemas for deployment checks.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LUSCHUSTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default luschuster.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(formsCmd())
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetString("config"))
}

// signingSecret resolves the CSRF secret from the environment. The built-in
// development value is accepted only when dev is set.
func signingSecret(dev bool) (string, error) {
	secret := strings.TrimSpace(viper.GetString("csrf-secret"))
	if secret != "" && secret != config.DevSecret {
		return secret, nil
	}
	if dev {
		return config.DevSecret, nil
	}
	return "", fmt.Errorf("LUSCHUSTER_CSRF_SECRET is required (or pass --dev for local development)")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Logging.Format == "json" {
		log = zerolog.New(os.Stdout)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return log.Level(level).With().Timestamp().Str("service", "luschuster-web").Logger()
}

func buildLimiters(cfg *config.Config, log zerolog.Logger) (contact, quote ratelimit.Limiter) {
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		contact = ratelimit.NewRedisStore(rdb, cfg.Forms.Contact.Rule(), "ratelimit:contact", log)
		quote = ratelimit.NewRedisStore(rdb, cfg.Forms.Quote.Rule(), "ratelimit:quote", log)
		return contact, quote
	}
	return ratelimit.NewMemoryStore(cfg.Forms.Contact.Rule()),
		ratelimit.NewMemoryStore(cfg.Forms.Quote.Rule())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var dev bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the forms API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}
			secret, err := signingSecret(dev)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			if dev {
				log.Warn().Msg("running with the development CSRF secret; do not deploy like this")
			}

			contactLimiter, quoteLimiter := buildLimiters(cfg, log)
			handler, err := server.New(server.Config{
				BasePath:       cfg.Server.BasePath,
				CSRF:           csrf.Service{Secret: secret, TTL: cfg.CSRFTTL()},
				ContactLimiter: contactLimiter,
				QuoteLimiter:   quoteLimiter,
				ContactDelay:   cfg.Forms.Contact.Delay(),
				QuoteDelay:     cfg.Forms.Quote.Delay(),
				Notifier:       notify.LogNotifier{Log: log},
				Log:            log,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}()
			log.Info().
				Str("addr", cfg.Server.Addr).
				Str("base_path", cfg.Server.BasePath).
				Msg("serving forms API")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "allow the built-in development CSRF secret")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default luschuster.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("config")
			if path == "" {
				path = config.DefaultPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			t := newTable("SETTING", "VALUE")
			t.AppendRow(table.Row{"server.addr", cfg.Server.Addr})
			t.AppendRow(table.Row{"server.base_path", cfg.Server.BasePath})
			t.AppendRow(table.Row{"security.csrf_ttl_hours", cfg.Security.CSRFTTLHours})
			t.AppendRow(table.Row{"forms.contact", describeForm(cfg.Forms.Contact)})
			t.AppendRow(table.Row{"forms.quote", describeForm(cfg.Forms.Quote)})
			t.AppendRow(table.Row{"redis.addr", orDash(cfg.Redis.Addr)})
			t.AppendRow(table.Row{"logging", cfg.Logging.Level + "/" + cfg.Logging.Format})
			t.Render()
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
}

func describeForm(f config.FormSettings) string {
	return fmt.Sprintf("%d req / %d min, delay %dms", f.RateLimit, f.WindowMinutes, f.ProcessingDelayMS)
}

func tokenCmd() *cobra.Command {
	tok := &cobra.Command{Use: "token", Short: "Issue and check CSRF tokens"}
	tok.AddCommand(tokenIssueCmd())
	tok.AddCommand(tokenCheckCmd())
	return tok
}

func tokenService(dev bool) (csrf.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return csrf.Service{}, err
	}
	secret, err := signingSecret(dev)
	if err != nil {
		return csrf.Service{}, err
	}
	return csrf.Service{Secret: secret, TTL: cfg.CSRFTTL()}, nil
}

func tokenIssueCmd() *cobra.Command {
	var session string
	var dev bool
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a CSRF token",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := tokenService(dev)
			if err != nil {
				return err
			}
			token, sid, err := svc.Issue(session)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"csrfToken": token, "sessionId": sid})
			}
			fmt.Println("token:  ", token)
			fmt.Println("session:", sid)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "bind the token to an existing session id")
	cmd.Flags().BoolVar(&dev, "dev", false, "allow the built-in development CSRF secret")
	return cmd
}

func tokenCheckCmd() *cobra.Command {
	var session string
	var dev bool
	cmd := &cobra.Command{
		Use:   "check <token>",
		Short: "Check a CSRF token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := tokenService(dev)
			if err != nil {
				return err
			}
			if !svc.Validate(args[0], session) {
				return fmt.Errorf("token is invalid or expired")
			}
			fmt.Println("token ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id the token must be bound to")
	cmd.Flags().BoolVar(&dev, "dev", false, "allow the built-in development CSRF secret")
	return cmd
}

func formsCmd() *cobra.Command {
	f := &cobra.Command{Use: "forms", Short: "Inspect form schemas"}
	f.AddCommand(formsListCmd())
	f.AddCommand(formsDescribeCmd())
	return f
}

func formsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List form kinds",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := []forms.Schema{forms.Contact(), forms.Quote()}
			if viper.GetBool("json") {
				kinds := make([]map[string]any, 0, len(schemas))
				for _, s := range schemas {
					kinds = append(kinds, map[string]any{"kind": s.Kind, "fields": len(s.Fields)})
				}
				return printJSON(kinds)
			}
			t := newTable("KIND", "FIELDS")
			for _, s := range schemas {
				t.AppendRow(table.Row{s.Kind, len(s.Fields)})
			}
			t.Render()
			return nil
		},
	}
}

func formsDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <kind>",
		Short: "Describe a form schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, ok := forms.ByKind(args[0])
			if !ok {
				return fmt.Errorf("unknown form kind %q (contact or quote)", args[0])
			}
			if viper.GetBool("json") {
				return printJSON(schemaRows(schema))
			}
			t := newTable("FIELD", "TYPE", "REQUIRED", "CONSTRAINTS")
			for _, row := range schemaRows(schema) {
				t.AppendRow(table.Row{row["field"], row["type"], row["required"], row["constraints"]})
			}
			t.Render()
			return nil
		},
	}
}

func schemaRows(s forms.Schema) []map[string]any {
	rows := make([]map[string]any, 0, len(s.Fields))
	for _, f := range s.Fields {
		rows = append(rows, map[string]any{
			"field":       f.Name,
			"type":        fieldTypeName(f.Type),
			"required":    !f.Optional,
			"constraints": fieldConstraints(f),
		})
	}
	return rows
}

func fieldTypeName(t forms.FieldType) string {
	switch t {
	case forms.Email:
		return "email"
	case forms.Enum:
		return "enum"
	case forms.Bool:
		return "bool"
	case forms.TextList:
		return "list"
	default:
		return "text"
	}
}

func fieldConstraints(f forms.Field) string {
	var parts []string
	if f.Min > 0 {
		parts = append(parts, fmt.Sprintf("min %d", f.Min))
	}
	if f.Max > 0 {
		parts = append(parts, fmt.Sprintf("max %d", f.Max))
	}
	if len(f.Values) > 0 {
		parts = append(parts, "one of: "+strings.Join(f.Values, " | "))
	}
	if f.MustBeTrue {
		parts = append(parts, "must be true")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row(header))
	return t
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
