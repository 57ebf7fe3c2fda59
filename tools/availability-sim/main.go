package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// availability-sim drives the availability service end to end from the
// command line: configure a weekday, materialize a horizon, then read
// the public slots back for a date.
func main() {
	var (
		baseURL      = flag.String("base-url", getenv("BASE_URL", "http://localhost:8084"), "availability service base url")
		practitioner = flag.String("practitioner-id", getenv("PRACTITIONER_ID", ""), "practitioner to configure")
		weekday      = flag.Int("weekday", 1, "weekday to enable, 0 (Sunday) through 6")
		start        = flag.String("start", "09:00", "working hours start (HH:MM)")
		end          = flag.String("end", "17:00", "working hours end (HH:MM)")
		duration     = flag.Int("duration", 30, "slot duration in minutes")
		weeks        = flag.Int("weeks", 2, "horizon length in weeks")
		date         = flag.String("date", "", "date to query (YYYY-MM-DD, default today)")
	)
	flag.Parse()

	if strings.TrimSpace(*practitioner) == "" {
		fatal("PRACTITIONER_ID is required")
	}
	queryDate := strings.TrimSpace(*date)
	if queryDate == "" {
		queryDate = time.Now().UTC().Format("2006-01-02")
	}

	base := strings.TrimRight(*baseURL, "/")

	enabled := true
	do("PUT", base+"/api/v1/schedule/days", *practitioner, map[string]any{
		"weekday":               *weekday,
		"enabled":               enabled,
		"start":                 *start,
		"end":                   *end,
		"slot_duration_minutes": *duration,
	})
	do("POST", base+"/api/v1/schedule/materialize", *practitioner, map[string]any{
		"weeks": *weeks,
	})

	q := url.Values{}
	q.Set("practitioner_id", *practitioner)
	q.Set("date", queryDate)
	resp, err := http.Get(base + "/api/v1/public/availability?" + q.Encode())
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("GET availability status=%d\n%s\n", resp.StatusCode, bytes.TrimSpace(body))
}

func do(method, target, practitionerID string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		fatal(err.Error())
	}
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Practitioner-Id", practitionerID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s status=%d %s\n", method, target, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
