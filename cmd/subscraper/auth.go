package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"subscraper/pkg/auth"
	"subscraper/pkg/config"
	"subscraper/pkg/logger"
	"subscraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage platform credentials",
	Long: `Manage stored platform credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Plain auth.json (for hand-edited files)
  - Environment variables (last resort)

Never share your credentials or config files!`,
}

// authSetCmd represents the auth set command
var authSetCmd = &cobra.Command{
	Use:   "set [profile]",
	Short: "Store platform credentials securely",
	Long: `Store platform credentials in the system keychain or encrypted file.

You will be prompted for:
  - sess cookie
  - auth_id cookie
  - auth_uid cookie (optional, 2FA accounts only)
  - User-Agent header
  - x-bc header

Run 'subscraper auth guide' for step-by-step extraction instructions.`,
	Example: `  # Store credentials for the default profile
  subscraper auth set

  # Store credentials for a named profile
  subscraper auth set alt_profile`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthSet,
}

// authShowCmd represents the auth show command
var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored profiles",
	Long:  `List all stored profiles with sensitive values masked.`,
	Run:   runAuthShow,
}

// authCheckCmd represents the auth check command
var authCheckCmd = &cobra.Command{
	Use:   "check [profile]",
	Short: "Verify stored credentials against the API",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAuthCheck,
}

// authGuideCmd represents the auth guide command
var authGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show how to extract auth values from a browser session",
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowAuthExtractionGuide()
	},
}

// authDeleteCmd represents the auth delete command
var authDeleteCmd = &cobra.Command{
	Use:   "delete <profile>",
	Short: "Remove a stored profile",
	Args:  cobra.ExactArgs(1),
	Run:   runAuthDelete,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(authCheckCmd)
	authCmd.AddCommand(authGuideCmd)
	authCmd.AddCommand(authDeleteCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	profileName := "main_profile"
	if len(args) > 0 {
		profileName = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(profileName); existing != nil {
		fmt.Printf("Profile '%s' already exists. Update credentials? (y/N): ", profileName)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\nEnter the values from your browser session (run 'subscraper auth guide' for help).")
	fmt.Println("Secret values are hidden as you type.")
	fmt.Println()

	sess, err := promptSecret(reader, "sess cookie: ")
	if err != nil {
		ui.PrintError("Failed to read sess cookie", err.Error())
		os.Exit(1)
	}

	fmt.Print("auth_id: ")
	authID, _ := reader.ReadString('\n')
	authID = strings.TrimSpace(authID)

	fmt.Print("auth_uid (press Enter to skip): ")
	authUID, _ := reader.ReadString('\n')
	authUID = strings.TrimSpace(authUID)

	fmt.Print("User-Agent: ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	xbc, err := promptSecret(reader, "x-bc header: ")
	if err != nil {
		ui.PrintError("Failed to read x-bc header", err.Error())
		os.Exit(1)
	}

	account := &auth.Account{
		Profile: profileName,
		Auth: auth.Auth{
			Sess:      sess,
			AuthID:    authID,
			AuthUID:   authUID,
			UserAgent: userAgent,
			XBC:       xbc,
		},
		LastModified: time.Now(),
	}

	if err := account.Auth.Validate(); err != nil {
		ui.PrintError("Incomplete credentials", err.Error())
		os.Exit(1)
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials stored for profile: " + profileName)
	fmt.Println("\nVerify them with:")
	fmt.Printf("  subscraper auth check %s\n", profileName)
}

func runAuthShow(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list profiles", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored profiles", "Use 'subscraper auth set' to add one")
		return
	}

	ui.PrintHighlight("Stored Profiles")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Profile: %s\n", i+1, sanitized.Profile)
		fmt.Printf("   sess: %s\n", sanitized.Auth.Sess)
		fmt.Printf("   auth_id: %s\n", sanitized.Auth.AuthID)
		if sanitized.Auth.AuthUID != "" {
			fmt.Printf("   auth_uid: %s\n", sanitized.Auth.AuthUID)
		}
		fmt.Printf("   x-bc: %s\n", sanitized.Auth.XBC)
		if sanitized.Auth.UserAgent != "" {
			fmt.Printf("   user_agent: %s\n", sanitized.Auth.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

func runAuthCheck(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		profile = args[0]
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := buildClient(ctx, cfg, logger.GetLogger())
	if err != nil {
		ui.PrintError("Authentication failed", err.Error())
		os.Exit(1)
	}

	user, err := client.CheckAuth(ctx)
	if err != nil {
		ui.PrintError("Authentication failed", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Authenticated as: " + user.Username)
}

func runAuthDelete(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if err := manager.Delete(args[0]); err != nil {
		ui.PrintError("Failed to remove profile", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Profile removed: " + args[0])
}

// promptSecret reads a value from stdin without echoing when attached
// to a terminal.
func promptSecret(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)

	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
