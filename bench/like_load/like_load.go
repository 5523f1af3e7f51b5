package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SessionResp is the subset of the register response the bench needs
type SessionResp struct {
	Token string `json:"token"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

type TweetResp struct {
	ID        string `json:"id"`
	LikeCount int    `json:"likeCount"`
}

func main() {
	// --- Command-line flags ---
	var server string
	var concurrency int
	var csvFile string
	var trimPercent float64
	var insecure bool

	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&concurrency, "c", 50, "number of concurrent users liking the same tweet")
	flag.StringVar(&csvFile, "csv", "like_latencies.csv", "CSV file to save latencies")
	flag.Float64Var(&trimPercent, "trim", 1.0, "percent of latency to trim from top and bottom for trimmed mean")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	flag.Parse()

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecure},
			MaxIdleConnsPerHost: concurrency,
		},
		Timeout: 10 * time.Second,
	}

	// --- Register one author and N likers ---
	run := time.Now().UnixNano()
	author := register(client, server, fmt.Sprintf("author_%d", run))

	fmt.Printf("Registering %d users...\n", concurrency)
	users := make([]SessionResp, concurrency)
	for i := range users {
		users[i] = register(client, server, fmt.Sprintf("liker_%d_%d", i, run))
	}

	var tweet TweetResp
	if err := doJSON(client, http.MethodPost, server+"/api/tweets", author.Token,
		map[string]string{"content": "contended tweet"}, http.StatusCreated, &tweet); err != nil {
		panic(fmt.Sprintf("failed to create tweet: %v", err))
	}
	fmt.Println("Setup done, tweet " + tweet.ID)

	// --- Every user toggles the like once, all at the same moment ---
	var wg sync.WaitGroup
	var successes, failures int64
	latencies := make([]float64, concurrency)
	start := make(chan struct{})

	for i := range users {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start

			t0 := time.Now()
			err := doJSON(client, http.MethodPut, server+"/api/tweets/"+tweet.ID+"/like", users[idx].Token, nil, http.StatusOK, nil)
			latencies[idx] = time.Since(t0).Seconds() * 1000 // latency in ms
			if err != nil {
				fmt.Printf("Like error: %v\n", err)
				atomic.AddInt64(&failures, 1)
				return
			}
			atomic.AddInt64(&successes, 1)
		}(i)
	}
	close(start)
	wg.Wait()

	// --- Check that no like was lost ---
	var final TweetResp
	if err := doJSON(client, http.MethodGet, server+"/api/tweets/"+tweet.ID, "", nil, http.StatusOK, &final); err != nil {
		panic(fmt.Sprintf("failed to read tweet: %v", err))
	}

	sort.Float64s(latencies)
	fmt.Printf("Likes: %d  Failures: %d  Final likeCount: %d\n", successes, failures, final.LikeCount)
	fmt.Printf("Latency (ms): trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f\n",
		trimmedMean(latencies, trimPercent), percentile(latencies, 50), percentile(latencies, 90), percentile(latencies, 99))

	if err := saveCSV(csvFile, latencies); err != nil {
		fmt.Printf("Failed to save CSV file: %v\n", err)
	} else {
		fmt.Printf("Saved latencies to %s\n", csvFile)
	}

	if int64(final.LikeCount) != successes {
		fmt.Printf("LOST UPDATES: expected likeCount=%d\n", successes)
		os.Exit(1)
	}
}

func register(client *http.Client, server, name string) SessionResp {
	var s SessionResp
	body := map[string]string{"username": name, "email": name + "@bench.local", "password": "bench-password"}
	if err := doJSON(client, http.MethodPost, server+"/api/auth/register", "", body, http.StatusCreated, &s); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", name, err))
	}
	return s
}

// doJSON sends body as JSON, checks the status and decodes the response into out when set.
func doJSON(client *http.Client, method, url, token string, body any, want int, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func saveCSV(path string, latencies []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"latency_ms"})
	for _, d := range latencies {
		w.Write([]string{fmt.Sprintf("%.3f", d)})
	}
	w.Flush()
	return w.Error()
}

// trimmedMean calculates mean latency after trimming top/bottom trimPercent values
func trimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = (len(data) - 1) / 2
	}
	trimmed := data[trim : len(data)-trim]
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// percentile interpolates the p-th percentile from sorted data
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	return data[f]*(float64(c)-k) + data[c]*(k-float64(f))
}
