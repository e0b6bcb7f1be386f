package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/models"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage organizations, clients and API keys",
	Long:  `Manage Adscope organizations, their clients and the API keys that grant access to them.`,
}

var clientOrgCreateCmd = &cobra.Command{
	Use:   "org-create <name>",
	Short: "Create a new organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if len(name) < 2 {
			return fmt.Errorf("organization name must be at least 2 characters long")
		}

		if err := database.Connect(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() { _ = database.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var orgID uuid.UUID
		var createdAt time.Time
		err := database.DB.QueryRowContext(ctx,
			`INSERT INTO organizations (name) VALUES ($1) RETURNING id, created_at`,
			name,
		).Scan(&orgID, &createdAt)
		if err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}

		fmt.Printf("\n✓ Organization created successfully\n")
		fmt.Printf("  ID:      %s\n", orgID)
		fmt.Printf("  Name:    %s\n", name)
		fmt.Printf("  Created: %s\n", createdAt.Format(time.RFC3339))

		return nil
	},
}

var clientCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new client under an organization",
	Long: `Create a new client. Insight rows, metric configurations and dashboard
subscriptions all hang off a client.

Example:
  adscope client create "Acme Footwear" --org 7f9c0e7a-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		orgFlag, _ := cmd.Flags().GetString("org")

		orgID, err := uuid.Parse(orgFlag)
		if err != nil {
			return fmt.Errorf("invalid organization id %q: %w", orgFlag, err)
		}

		if err := database.Connect(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() { _ = database.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var clientID uuid.UUID
		var createdAt time.Time
		err = database.DB.QueryRowContext(ctx,
			`INSERT INTO clients (organization_id, name) VALUES ($1, $2) RETURNING id, created_at`,
			orgID, name,
		).Scan(&clientID, &createdAt)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		fmt.Printf("\n✓ Client created successfully\n")
		fmt.Printf("  ID:           %s\n", clientID)
		fmt.Printf("  Organization: %s\n", orgID)
		fmt.Printf("  Name:         %s\n", name)
		fmt.Printf("  Created:      %s\n", createdAt.Format(time.RFC3339))

		return nil
	},
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		orgFlag, _ := cmd.Flags().GetString("org")
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = "table"
		}

		if database.DB == nil {
			if err := database.Connect(); err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer func() { _ = database.Close() }()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		query := `SELECT id, organization_id, name, status, created_at FROM clients ORDER BY created_at`
		queryArgs := []interface{}{}
		if orgFlag != "" {
			orgID, err := uuid.Parse(orgFlag)
			if err != nil {
				return fmt.Errorf("invalid organization id %q: %w", orgFlag, err)
			}
			query = `SELECT id, organization_id, name, status, created_at FROM clients WHERE organization_id = $1 ORDER BY created_at`
			queryArgs = append(queryArgs, orgID)
		}

		rows, err := database.DB.QueryContext(ctx, query, queryArgs...)
		if err != nil {
			return fmt.Errorf("failed to list clients: %w", err)
		}
		defer rows.Close()

		var clients []models.Client
		for rows.Next() {
			var c models.Client
			if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Status, &c.CreatedAt); err != nil {
				continue
			}
			clients = append(clients, c)
		}

		switch format {
		case "table":
			return renderClientTable(clients)
		case "json":
			data, err := json.MarshalIndent(clients, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		default:
			return fmt.Errorf("invalid format: %s (use table or json)", format)
		}
	},
}

var clientShowCmd = &cobra.Command{
	Use:   "show <client-id>",
	Short: "Show one client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clientID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid client id %q: %w", args[0], err)
		}

		if database.DB == nil {
			if err := database.Connect(); err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer func() { _ = database.Close() }()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var c models.Client
		var orgName string
		err = database.DB.QueryRowContext(ctx, `
			SELECT c.id, c.organization_id, c.name, c.status, c.created_at, o.name
			FROM clients c
			JOIN organizations o ON o.id = c.organization_id
			WHERE c.id = $1`, clientID,
		).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Status, &c.CreatedAt, &orgName)
		if err != nil {
			return fmt.Errorf("client %s not found: %w", clientID, err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "ID:\t%s\n", c.ID)
		_, _ = fmt.Fprintf(w, "Name:\t%s\n", c.Name)
		_, _ = fmt.Fprintf(w, "Status:\t%s\n", c.Status)
		_, _ = fmt.Fprintf(w, "Organization:\t%s (%s)\n", orgName, c.OrganizationID)
		_, _ = fmt.Fprintf(w, "Created:\t%s\n", c.CreatedAt.Format(time.RFC3339))
		_ = w.Flush()

		return nil
	},
}

var clientKeyCreateCmd = &cobra.Command{
	Use:   "apikey-create",
	Short: "Create an API key for an organization",
	Long: `Create an API key scoped to an organization. The plaintext key is
printed exactly once; only its hash is stored.

Example:
  adscope client apikey-create --org 7f9c0e7a-... --name "reporting" --scopes read,write`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgFlag, _ := cmd.Flags().GetString("org")
		name, _ := cmd.Flags().GetString("name")
		scopes, _ := cmd.Flags().GetStringSlice("scopes")
		expiresIn, _ := cmd.Flags().GetInt("expires-days")

		orgID, err := uuid.Parse(orgFlag)
		if err != nil {
			return fmt.Errorf("invalid organization id %q: %w", orgFlag, err)
		}

		for _, s := range scopes {
			if s != "read" && s != "write" && s != "ingest" {
				return fmt.Errorf("unknown scope %q (use read, write, ingest)", s)
			}
		}

		key, err := generateAPIKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		if err := database.Connect(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() { _ = database.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var expiresAt interface{}
		if expiresIn > 0 {
			expiresAt = time.Now().UTC().AddDate(0, 0, expiresIn)
		}

		var keyID uuid.UUID
		err = database.DB.QueryRowContext(ctx, `
			INSERT INTO api_keys (organization_id, key_hash, name, scopes, expires_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5)
			RETURNING key_id`,
			orgID, models.HashAPIKey(key), name, pq.Array(scopes), expiresAt,
		).Scan(&keyID)
		if err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}

		fmt.Printf("\n✓ API key created successfully\n")
		fmt.Printf("  Key ID:       %s\n", keyID)
		fmt.Printf("  Organization: %s\n", orgID)
		fmt.Printf("  Scopes:       %v\n", scopes)
		if expiresAt != nil {
			fmt.Printf("  Expires:      %s\n", expiresAt.(time.Time).Format("2006-01-02"))
		}
		fmt.Println()
		fmt.Println("Store this key now. It is shown only once:")
		fmt.Println()
		fmt.Printf("  %s\n", key)

		return nil
	},
}

var clientKeyRevokeCmd = &cobra.Command{
	Use:   "apikey-revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid key id %q: %w", args[0], err)
		}

		if err := database.Connect(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() { _ = database.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := database.DB.ExecContext(ctx,
			`UPDATE api_keys SET revoked_at = now() WHERE key_id = $1 AND revoked_at IS NULL`,
			keyID,
		)
		if err != nil {
			return fmt.Errorf("failed to revoke API key: %w", err)
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("API key %s not found or already revoked", keyID)
		}

		fmt.Printf("✓ API key %s revoked\n", keyID)
		return nil
	},
}

// generateAPIKey returns a new plaintext key. 32 random bytes behind the
// recognizable prefix keeps keys greppable in config files and logs.
func generateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "adscope_live_" + hex.EncodeToString(raw), nil
}

func renderClientTable(clients []models.Client) error {
	if len(clients) == 0 {
		fmt.Println("No clients found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tORGANIZATION\tCREATED AT")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------------\t----------")
	for _, c := range clients {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Status, c.OrganizationID,
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}

func init() {
	clientCreateCmd.Flags().String("org", "", "Organization UUID (required)")
	_ = clientCreateCmd.MarkFlagRequired("org")

	clientListCmd.Flags().String("org", "", "Limit to one organization")
	clientListCmd.Flags().String("format", "table", "Output format: table or json")

	clientKeyCreateCmd.Flags().String("org", "", "Organization UUID (required)")
	clientKeyCreateCmd.Flags().String("name", "", "Key label")
	clientKeyCreateCmd.Flags().StringSlice("scopes", []string{"read"}, "Scopes: read, write, ingest")
	clientKeyCreateCmd.Flags().Int("expires-days", 0, "Days until expiry (0 = never)")
	_ = clientKeyCreateCmd.MarkFlagRequired("org")

	clientCmd.AddCommand(clientOrgCreateCmd)
	clientCmd.AddCommand(clientCreateCmd)
	clientCmd.AddCommand(clientListCmd)
	clientCmd.AddCommand(clientShowCmd)
	clientCmd.AddCommand(clientKeyCreateCmd)
	clientCmd.AddCommand(clientKeyRevokeCmd)
}
