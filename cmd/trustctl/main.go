package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	actorID string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trustctl",
		Short: "Trust accounting operations tool",
		Long:  `A command line interface for the trust accounting API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the trust accounting API")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "Actor identity for mutating operations")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Trust account operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency <account-id>",
		Short: "Check that the account balance equals the sum of its client ledgers",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency(args[0])
		},
	}

	reconciliationsCmd := &cobra.Command{
		Use:   "reconciliations <account-id>",
		Short: "List an account's reconciliation records",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			listReconciliations(args[0])
		},
	}

	var (
		periodEnd   string
		bankBalance string
		checks      []string
		inTransit   []string
		notes       string
	)
	reconcileCmd := &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Submit a period-end three-way reconciliation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			submitReconciliation(args[0], periodEnd, bankBalance, checks, inTransit, notes)
		},
	}
	reconcileCmd.Flags().StringVar(&periodEnd, "period-end", "", "Period end date (YYYY-MM-DD)")
	reconcileCmd.Flags().StringVar(&bankBalance, "bank-balance", "", "Bank statement closing balance")
	reconcileCmd.Flags().StringArrayVar(&checks, "outstanding-check", nil, "Outstanding check as ref=amount (repeatable)")
	reconcileCmd.Flags().StringArrayVar(&inTransit, "deposit-in-transit", nil, "Deposit in transit as ref=amount (repeatable)")
	reconcileCmd.Flags().StringVar(&notes, "notes", "", "Preparer notes")
	reconcileCmd.MarkFlagRequired("period-end")
	reconcileCmd.MarkFlagRequired("bank-balance")

	accountCmd.AddCommand(consistencyCmd, reconciliationsCmd, reconcileCmd)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit trail operations",
	}

	var resourceType, resourceID string
	auditExportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export audit logs as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			exportAuditLogs(resourceType, resourceID)
		},
	}
	auditExportCmd.Flags().StringVar(&resourceType, "resource-type", "", "Filter by resource type")
	auditExportCmd.Flags().StringVar(&resourceID, "resource-id", "", "Filter by resource ID")
	auditCmd.AddCommand(auditExportCmd)

	rootCmd.AddCommand(accountCmd, auditCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func get(path string) ([]byte, int) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return body, resp.StatusCode
}

func post(path string, payload any) ([]byte, int) {
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Error encoding request: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return respBody, resp.StatusCode
}

func checkConsistency(accountID string) {
	body, status := get("/api/v1/accounts/" + accountID + "/consistency")
	if status != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	consistent, _ := result["consistent"].(bool)
	fmt.Printf("Account balance: %v\n", result["account_balance"])
	fmt.Printf("Client ledger sum: %v\n", result["ledger_sum"])
	if consistent {
		fmt.Println("Consistency check PASSED")
		return
	}

	fmt.Println("Consistency check FAILED: account balance does not equal client ledger sum")
	os.Exit(1)
}

func listReconciliations(accountID string) {
	body, status := get("/api/v1/accounts/" + accountID + "/reconciliations")
	if status != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	printJSON(body)
}

func submitReconciliation(accountID, periodEnd, bankBalance string, checks, inTransit []string, notes string) {
	end, err := time.Parse("2006-01-02", periodEnd)
	if err != nil {
		fmt.Printf("Invalid --period-end %q: %v\n", periodEnd, err)
		os.Exit(1)
	}

	payload := map[string]any{
		"period_end":             end.Format(time.RFC3339),
		"bank_statement_balance": bankBalance,
		"outstanding_checks":     parseItems(checks, end),
		"deposits_in_transit":    parseItems(inTransit, end),
		"notes":                  notes,
	}

	body, status := post("/api/v1/accounts/"+accountID+"/reconciliations", payload)
	if status != http.StatusCreated {
		fmt.Printf("Reconciliation submission failed (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	printJSON(body)
}

// parseItems turns repeated ref=amount flags into reconciliation item
// payloads dated at the period end.
func parseItems(raw []string, itemDate time.Time) []map[string]any {
	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		ref, amount, ok := strings.Cut(r, "=")
		if !ok || ref == "" || amount == "" {
			fmt.Printf("Invalid item %q: expected ref=amount\n", r)
			os.Exit(1)
		}
		items = append(items, map[string]any{
			"reference": ref,
			"amount":    amount,
			"item_date": itemDate.Format(time.RFC3339),
		})
	}
	return items
}

func exportAuditLogs(resourceType, resourceID string) {
	path := "/api/v1/audit-logs?limit=100"
	if resourceType != "" {
		path += "&resource_type=" + resourceType
	}
	if resourceID != "" {
		path += "&resource_id=" + resourceID
	}

	body, status := get(path)
	if status != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	printJSON(body)
}

func printJSON(body []byte) {
	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}

	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return
	}

	fmt.Println(string(out))
}
