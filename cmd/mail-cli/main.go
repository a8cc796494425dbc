package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corvusHold/shopmail/internal/version"
)

var (
	cfgFile   string
	apiURL    string
	apiToken  string
	tenantID  string
	verbose   bool
	outputFmt string
)

// Config holds CLI configuration
type Config struct {
	APIURL   string `mapstructure:"api_url"`
	APIToken string `mapstructure:"api_token"`
	TenantID string `mapstructure:"tenant_id"`
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mail-cli",
	Short: "shopmail CLI - tenant mail operations",
	Long: `mail-cli talks to the shopmail API from the terminal.
Send mail for a tenant, run SMTP diagnostics, inspect and clear the transport cache.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
		logVerbose("API URL: %s", apiURL)
		logVerbose("Tenant ID: %s", tenantID)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shopmail-cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "shopmail API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "tenant ID for operations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format (table, json)")

	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("api_token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("tenant_id", rootCmd.PersistentFlags().Lookup("tenant"))

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(testEmailCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".shopmail-cli")
	}

	viper.SetEnvPrefix("SHOPMAIL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		logVerbose("Using config file: %s", viper.ConfigFileUsed())
	}

	if apiURL == "" {
		apiURL = viper.GetString("api_url")
	}
	if apiToken == "" {
		apiToken = viper.GetString("api_token")
	}
	if tenantID == "" {
		tenantID = viper.GetString("tenant_id")
	}
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
}

func tenantClient() (*MailClient, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required (use --tenant flag)")
	}
	return &MailClient{BaseURL: apiURL, Token: apiToken, Tenant: tenantID}, nil
}

var sendCmd = &cobra.Command{
	Use:   "send [recipient...]",
	Short: "Send a mail through the tenant's transport",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := tenantClient()
		if err != nil {
			return err
		}
		subject, _ := cmd.Flags().GetString("subject")
		text, _ := cmd.Flags().GetString("text")
		html, _ := cmd.Flags().GetString("html")
		from, _ := cmd.Flags().GetString("from")
		if subject == "" {
			return fmt.Errorf("--subject is required")
		}
		res, err := client.Send(SendRequest{To: args, From: from, Subject: subject, Text: text, HTML: html})
		if err != nil {
			return err
		}
		return formatOutput(res)
	},
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Verify SMTP connectivity for the tenant or an ad-hoc server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := tenantClient()
		if err != nil {
			return err
		}
		res, err := client.TestConnection(smtpFlags(cmd))
		if err != nil {
			return err
		}
		return formatOutput(res)
	},
}

var testEmailCmd = &cobra.Command{
	Use:   "test-email [recipient]",
	Short: "Send the German diagnostic test mail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := tenantClient()
		if err != nil {
			return err
		}
		res, err := client.TestEmail(args[0], smtpFlags(cmd))
		if err != nil {
			return err
		}
		return formatOutput(res)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached transport state for the tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := tenantClient()
		if err != nil {
			return err
		}
		res, err := client.Status()
		if err != nil {
			return err
		}
		return formatOutput(res)
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop cached transports (one tenant, or all with --all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			client := &MailClient{BaseURL: apiURL, Token: apiToken}
			if err := client.ClearAll(); err != nil {
				return err
			}
			fmt.Println("Transport cache cleared for all tenants.")
			return nil
		}
		client, err := tenantClient()
		if err != nil {
			return err
		}
		if err := client.ClearTenant(); err != nil {
			return err
		}
		fmt.Printf("Transport cache cleared for tenant %s.\n", tenantID)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	sendCmd.Flags().String("subject", "", "mail subject")
	sendCmd.Flags().String("text", "", "plain text body")
	sendCmd.Flags().String("html", "", "HTML body")
	sendCmd.Flags().String("from", "", "explicit From address")

	for _, c := range []*cobra.Command{testConnectionCmd, testEmailCmd} {
		c.Flags().String("host", "", "ad-hoc SMTP host (omit to test the tenant's stored configuration)")
		c.Flags().Int("port", 587, "ad-hoc SMTP port")
		c.Flags().String("user", "", "ad-hoc SMTP username")
		c.Flags().String("pass", "", "ad-hoc SMTP password")
		c.Flags().String("from", "", "ad-hoc From address")
	}

	clearCacheCmd.Flags().Bool("all", false, "clear the cache for every tenant (admin token required)")
}

// smtpFlags returns nil when no ad-hoc host was given.
func smtpFlags(cmd *cobra.Command) *SMTPConfig {
	host, _ := cmd.Flags().GetString("host")
	if host == "" {
		return nil
	}
	port, _ := cmd.Flags().GetInt("port")
	user, _ := cmd.Flags().GetString("user")
	pass, _ := cmd.Flags().GetString("pass")
	from, _ := cmd.Flags().GetString("from")
	return &SMTPConfig{Host: host, Port: port, Auth: SMTPAuth{User: user, Pass: pass}, From: from}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig()
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func initializeConfig() error {
	fmt.Println("shopmail CLI Configuration Setup")
	fmt.Println("================================")

	var config Config

	fmt.Print("shopmail API URL [http://localhost:8080]: ")
	var url string
	_, _ = fmt.Scanln(&url)
	if url == "" {
		url = "http://localhost:8080"
	}
	config.APIURL = url

	fmt.Print("API Token: ")
	_, _ = fmt.Scanln(&config.APIToken)

	fmt.Print("Default Tenant ID (optional): ")
	_, _ = fmt.Scanln(&config.TenantID)

	viper.Set("api_url", config.APIURL)
	viper.Set("api_token", config.APIToken)
	viper.Set("tenant_id", config.TenantID)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := fmt.Sprintf("%s/.shopmail-cli.yaml", home)
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Configuration saved to %s\n", configPath)
	return nil
}

func showConfig() error {
	fmt.Println("Current Configuration:")
	fmt.Printf("API URL: %s\n", apiURL)
	fmt.Printf("API Token: %s\n", maskToken(apiToken))
	fmt.Printf("Default Tenant ID: %s\n", tenantID)

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	}
	return nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func formatOutput(data any) error {
	if outputFmt == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}
	return formatTable(data)
}

// formatTable prints one "key: value" line per JSON field.
func formatTable(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		fmt.Printf("%v\n", data)
		return nil
	}
	for _, key := range sortedKeys(fields) {
		fmt.Printf("%-14s: %v\n", key, fields[key])
	}
	return nil
}

func logVerbose(format string, args ...any) {
	if verbose {
		log.Printf("[VERBOSE] "+format, args...)
	}
}
