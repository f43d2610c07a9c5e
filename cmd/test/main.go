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

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/forked/internal/models"
	"github.com/BerylCAtieno/forked/internal/scenario"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Border(lipgloss.NormalBorder()).Padding(0, 1)
	testStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type TestClient struct {
	baseURL string
	client  *http.Client
}

func NewTestClient(baseURL string, timeout time.Duration) *TestClient {
	return &TestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

var (
	baseURL  string
	testType string
	timeout  time.Duration
	request  models.GenerationRequest
)

var rootCmd = &cobra.Command{
	Use:   "forked-smoke",
	Short: "Smoke tests against a running Forked server",
	Long: `Drives a running server through its endpoints.

Tests: all, health, test, validation, generate, custom.
The custom test sends the scenario given with --age/--decision and friends.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&baseURL, "url", "http://localhost:5000", "base URL of the server")
	f.StringVar(&testType, "test", "all", "test to run")
	f.DurationVar(&timeout, "timeout", 2*time.Minute, "HTTP client timeout")
	f.StringVar((*string)(&request.Age), "age", "", "age for the custom test")
	f.StringVar(&request.Profession, "profession", "", "profession for the custom test")
	f.StringVar(&request.Location, "location", "", "location for the custom test")
	f.StringVar(&request.Risk, "risk", "", "risk level for the custom test")
	f.StringVar(&request.Decision, "decision", "", "decision for the custom test")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	client := NewTestClient(baseURL, timeout)

	fmt.Println(headerStyle.Render("Forked - Smoke Test Suite"))
	fmt.Printf("%s %s\n\n", labelStyle.Render("Base URL:"), client.baseURL)

	switch testType {
	case "all":
		return client.runAllTests()
	case "health":
		return result(client.testHealthCheck())
	case "test", "connectivity":
		return result(client.testConnectivity())
	case "validation":
		return result(client.testMissingFields())
	case "generate":
		return result(client.testGeneration(exampleRequest()))
	case "custom":
		if err := request.Validate(); err != nil {
			return fmt.Errorf("--age and --decision are required for the custom test")
		}
		return result(client.testGeneration(request))
	default:
		return fmt.Errorf("unknown test type %q (available: all, health, test, validation, generate, custom)", testType)
	}
}

func exampleRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Age:        "28",
		Profession: "Engineer",
		Location:   "Berlin",
		Risk:       "High",
		Decision:   "Quit job to found a startup",
	}
}

func result(ok bool) error {
	if !ok {
		return fmt.Errorf("test failed")
	}
	return nil
}

func (tc *TestClient) runAllTests() error {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", tc.testHealthCheck},
		{"Provider Connectivity", tc.testConnectivity},
		{"Missing Fields", tc.testMissingFields},
		{"Simulation", func() bool { return tc.testGeneration(exampleRequest()) }},
	}

	passed := 0
	failed := 0

	for _, test := range tests {
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Println()
	}

	fmt.Println(headerStyle.Render("Test Summary"))
	fmt.Println(successStyle.Render(fmt.Sprintf("Passed: %d", passed)))
	fmt.Println(errorStyle.Render(fmt.Sprintf("Failed: %d", failed)))
	fmt.Printf("Total: %d\n", passed+failed)

	if failed > 0 {
		return fmt.Errorf("%d test(s) failed", failed)
	}
	return nil
}

func (tc *TestClient) testHealthCheck() bool {
	printTestHeader("Testing Health Check Endpoint")

	status, body, err := tc.get("/healthz")
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK || string(body) != "OK" {
		printError(fmt.Sprintf("Expected 200 OK, got %d %q", status, string(body)))
		return false
	}

	printSuccess("Health check passed")
	return true
}

func (tc *TestClient) testConnectivity() bool {
	printTestHeader("Testing Provider Connectivity (/test)")

	status, body, err := tc.get("/test")
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}

	var resp models.TestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if status != http.StatusOK || resp.Status != models.StatusSuccess {
		printError(fmt.Sprintf("Provider unreachable (%d): %s", status, resp.Message))
		return false
	}

	printSuccess("Provider answered: " + resp.Response)
	return true
}

func (tc *TestClient) testMissingFields() bool {
	printTestHeader("Testing Missing Field Validation")

	status, body, err := tc.post("/generate", map[string]string{"profession": "Engineer"})
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}

	var resp models.ErrorResponse
	_ = json.Unmarshal(body, &resp)
	if status != http.StatusBadRequest || resp.Error == "" {
		printError(fmt.Sprintf("Expected 400 with an error, got %d %s", status, string(body)))
		return false
	}

	printSuccess("Rejected with: " + resp.Error)
	return true
}

func (tc *TestClient) testGeneration(req models.GenerationRequest) bool {
	printTestHeader("Testing Simulation")
	fmt.Printf("%s %s\n\n", labelStyle.Render("Decision:"), req.Decision)

	start := time.Now()
	status, body, err := tc.post("/generate", req)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	var resp models.GenerationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}

	n, err := scenario.ParseNarrative(resp.RawOutput)
	if err != nil {
		printError(fmt.Sprintf("Narrative did not parse: %v", err))
		fmt.Println(resp.RawOutput)
		return false
	}
	if !strings.Contains(resp.RawOutput, "YEAR 1") {
		printError("Narrative has no YEAR 1 block")
		return false
	}

	printSuccess(fmt.Sprintf("Simulation completed in %s", time.Since(start).Round(time.Millisecond)))
	fmt.Printf("%s %d year blocks, %d losses, score %d (%s)\n",
		labelStyle.Render("Structure:"), len(n.Years), len(n.Losses), n.Score, n.ScoreExplanation)

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(resp.RawOutput)
	fmt.Println(strings.Repeat("=", 80))
	return true
}

func (tc *TestClient) get(path string) (int, []byte, error) {
	resp, err := tc.client.Get(tc.baseURL + path)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func (tc *TestClient) post(path string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	resp, err := tc.client.Post(tc.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func printTestHeader(text string) {
	fmt.Println(testStyle.Render("[TEST] " + text))
	fmt.Println(strings.Repeat("-", 80))
}

func printSuccess(text string) {
	fmt.Println(successStyle.Render("✓ " + text))
}

func printError(text string) {
	fmt.Println(errorStyle.Render("✗ " + text))
}
