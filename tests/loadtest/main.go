package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18080"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numHolders   = 200
	numSignals   = 3
)

var signalIDs = []string{
	"a1b2c3d4-0000-0000-0000-000000000001",
	"a1b2c3d4-0000-0000-0000-000000000002",
	"a1b2c3d4-0000-0000-0000-000000000003",
}

var riskLevels = []string{"", "low", "mid", "high"}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== SignalGate Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Holders: %d | Signals: %d\n\n", numHolders, numSignals)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/signals")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Browse-heavy load, what a public landing page sees
	fmt.Println("\n--- Phase 1: Browse load (80% GET /signals, 20% GET /entitlements) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		if rng.Float64() < 0.80 {
			return doGetSignals(rng)
		}
		return doGetEntitlements(rng)
	})

	// Phase 2: Mixed browse and unlock attempts
	fmt.Println("\n--- Phase 2: Mixed load (50% browse, 40% request, 10% complete) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.35:
			return doGetSignals(rng)
		case r < 0.50:
			return doGetEntitlements(rng)
		case r < 0.90:
			return doRequestUnlock(rng)
		default:
			return doCompleteUnlock(rng)
		}
	})

	// Phase 3: Unlock-heavy load, stresses quota checks and quote issuance
	fmt.Println("\n--- Phase 3: Unlock-heavy load (20% browse, 70% request, 10% complete) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.20:
			return doGetSignals(rng)
		case r < 0.90:
			return doRequestUnlock(rng)
		default:
			return doCompleteUnlock(rng)
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-24s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 90))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-24s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 90))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func holderAddress(rng *rand.Rand) string {
	return fmt.Sprintf("LoadHolder%032d", rng.Intn(numHolders))
}

func doGetSignals(rng *rand.Rand) result {
	risk := riskLevels[rng.Intn(len(riskLevels))]
	url := baseURL + "/signals"
	if risk != "" {
		url += "?risk=" + risk
	}
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /signals", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /signals", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetEntitlements(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/entitlements?holder=%s", baseURL, holderAddress(rng))
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /entitlements", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /entitlements", resp.StatusCode, lat, resp.StatusCode != 200}
}

// doRequestUnlock exercises the quota path. Holders here own no quota tokens,
// so 403 is the expected steady-state answer and does not count as an error.
func doRequestUnlock(rng *rand.Rand) result {
	body := map[string]string{
		"signal_id": signalIDs[rng.Intn(len(signalIDs))],
		"holder":    holderAddress(rng),
	}
	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/unlock/request", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /unlock/request", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	bad := resp.StatusCode != 200 && resp.StatusCode != 403 && resp.StatusCode != 404
	return result{"POST /unlock/request", resp.StatusCode, lat, bad}
}

// doCompleteUnlock sends a completion with a dead reference. The expected
// answer is 400 unknown_reference; anything else means the error mapping or
// the quote book is misbehaving under load.
func doCompleteUnlock(rng *rand.Rand) result {
	body := map[string]string{
		"signal_id": signalIDs[rng.Intn(len(signalIDs))],
		"holder":    holderAddress(rng),
		"reference": fmt.Sprintf("dead-ref-%d", rng.Intn(1000)),
	}
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/unlock/complete", bytes.NewReader(data))
	if err != nil {
		return result{"POST /unlock/complete", 0, 0, true}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-402-Payment", "solana:LoadRecipient:LoadMint:100000:LoadProof:devnet")

	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /unlock/complete", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	bad := resp.StatusCode != 400 && resp.StatusCode != 404
	return result{"POST /unlock/complete", resp.StatusCode, lat, bad}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
