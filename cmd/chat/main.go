package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// requestTimeout bounds one search round trip.
const requestTimeout = 20 * time.Second

const noMatches = "No relevant products found."

type product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceUnits  int64  `json:"price_units"`
}

type searchResult struct {
	Recommendation string    `json:"recommendation"`
	Products       []product `json:"products"`
}

type client struct {
	server string
	http   *http.Client
}

func newClient(server string) *client {
	return &client{
		server: strings.TrimRight(server, "/"),
		http:   &http.Client{Timeout: requestTimeout},
	}
}

func main() {
	server := flag.String("server", "http://localhost:8080", "Boutique Stylist server URL")
	flag.Parse()

	fmt.Println("Boutique Stylist CLI")
	fmt.Printf("Server: %s\n", *server)
	fmt.Println("Describe what you are shopping for. Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /status")
	fmt.Println("---")

	c := newClient(*server)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if isExit(input) {
			fmt.Println("Bye!")
			return
		}
		if input == "/status" {
			c.fetchStatus(os.Stdout)
			continue
		}

		res, err := c.search(context.Background(), input)
		if err != nil {
			printError("%s", err)
			continue
		}
		render(os.Stdout, res)
	}
}

func isExit(input string) bool {
	return strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit")
}

// search posts one query. Errors are already phrased for the user.
func (c *client) search(ctx context.Context, query string) (*searchResult, error) {
	body, _ := json.Marshal(map[string]string{"query": query})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/api/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Invalid server URL: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("The request timed out after %s. Please try again.", requestTimeout)
		}
		return nil, fmt.Errorf("Could not reach the server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("Server error (%d): %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("Server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var res searchResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("Failed to parse response: %v", err)
	}
	return &res, nil
}

func render(w io.Writer, res *searchResult) {
	if len(res.Products) == 0 {
		fmt.Fprintln(w, noMatches)
		return
	}
	fmt.Fprintln(w, "Recommended products:")
	for _, p := range res.Products {
		fmt.Fprintf(w, "  - %s - %s ($%d)\n", p.Name, p.Description, p.PriceUnits)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, res.Recommendation)
}

func (c *client) fetchStatus(w io.Writer) {
	resp, err := c.http.Get(c.server + "/api/gateway/status")
	if err != nil {
		printError("Failed to fetch status: %v", err)
		return
	}
	defer resp.Body.Close()

	var statuses []struct {
		Platform  string `json:"platform"`
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
		Details   string `json:"details,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		printError("Failed to parse status: %v", err)
		return
	}
	fmt.Fprintln(w, "Gateway Status:")
	for _, s := range statuses {
		icon := "\033[31m✗\033[0m"
		if s.Connected {
			icon = "\033[32m✓\033[0m"
		}
		fmt.Fprintf(w, "  %s %s", icon, s.Platform)
		if s.Details != "" {
			fmt.Fprintf(w, " (%s)", s.Details)
		}
		if s.Error != "" {
			fmt.Fprintf(w, " \033[31m(%s)\033[0m", s.Error)
		}
		fmt.Fprintln(w)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
