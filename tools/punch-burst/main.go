// Command punch-burst fires concurrent punch requests at a running agent. All
// but one request of a burst should be refused while a punch is in flight.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	// Configuration
	url := flag.String("url", "http://localhost:8080/api/v1/session/punch", "punch endpoint of the agent")
	bursts := flag.Int("bursts", 5, "number of bursts")
	concurrency := flag.Int("concurrency", 20, "requests per burst")
	pause := flag.Duration("pause", 2*time.Second, "pause between bursts")
	flag.Parse()

	fmt.Printf("Starting punch burst: %d bursts of %d concurrent requests to %s\n", *bursts, *concurrency, *url)

	client := &http.Client{Timeout: 30 * time.Second}

	var okCount, conflictCount, failCount int64
	startTime := time.Now()

	for b := 0; b < *bursts; b++ {
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < *concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				resp, err := client.Post(*url, "application/json", nil)
				if err != nil {
					atomic.AddInt64(&failCount, 1)
					return
				}
				defer resp.Body.Close()
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&okCount, 1)
				case resp.StatusCode == http.StatusConflict:
					atomic.AddInt64(&conflictCount, 1)
				default:
					atomic.AddInt64(&failCount, 1)
				}
			}()
		}
		close(start)
		wg.Wait()
		if b < *bursts-1 {
			time.Sleep(*pause)
		}
	}

	duration := time.Since(startTime)
	total := *bursts * *concurrency

	fmt.Println("\n--- Punch Burst Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", total)
	fmt.Printf("Accepted:       %d\n", okCount)
	fmt.Printf("Refused (409):  %d\n", conflictCount)
	fmt.Printf("Failed:         %d\n", failCount)
	if okCount > int64(*bursts) {
		fmt.Println("WARNING: more punches accepted than bursts; the in-flight guard did not hold")
	}
}
