package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

const (
	baseURL    = "http://localhost:8080/api/v1"
	rpsGoal    = 20               // RPS конкурентных Start
	duration   = 10 * time.Second // Тестируем 10 секунд
	cycleCount = 10               // Количество циклов в одном проекте
)

type cycle struct {
	ID        int    `json:"id"`
	ProjectID int    `json:"project_id"`
	Status    string `json:"status"`
}

func main() {
	log.Println("Starting stress test setup...")

	// 1. Подготовка данных: проект с пачкой циклов в статусе PLANNED
	projectID := int(time.Now().Unix() % 1_000_000)
	cycles := setupTestData(projectID)
	if len(cycles) < 2 {
		log.Fatal("Not enough cycles for stress test. Is the server running?")
	}

	log.Printf("Setup complete. Project ID: %d, Cycles: %d. Starting test for %s at %d RPS.",
		projectID, len(cycles), duration, rpsGoal)

	var wg sync.WaitGroup
	ticker := time.NewTicker(time.Second / time.Duration(rpsGoal))
	defer ticker.Stop()

	// Таймер для ограничения продолжительности теста
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var requestCounter int64
	var successCounter int64
	var conflictCounter int64
	var mu sync.Mutex

	start := time.Now()

	// 2. Конкурентные Start по циклам одного проекта: это удар ровно по
	// инварианту "не больше одного активного цикла на проект"
	for i := 0; i < int(duration.Seconds()*float64(rpsGoal)); i++ {
		select {
		case <-ctx.Done():
			goto endLoop
		case <-ticker.C:
			wg.Add(1)
			requestCounter++

			target := cycles[i%len(cycles)]

			go func(target cycle) {
				defer wg.Done()

				status, err := startCycle(target.ID)
				if err != nil {
					log.Printf("Error starting cycle %d: %v", target.ID, err)
					return
				}

				mu.Lock()
				switch status {
				case http.StatusOK:
					successCounter++
				case http.StatusConflict:
					// Цикл уже активен - для гонки это штатный исход
					conflictCounter++
				}
				mu.Unlock()
			}(target)
		}
	}

endLoop:
	wg.Wait()

	elapsed := time.Since(start)

	// 3. Главная проверка: после шторма активный цикл ровно один
	activeCount := countActiveCycles(projectID)

	log.Println("--- Stress Test Results ---")
	log.Printf("Duration: %s", elapsed.Round(time.Millisecond))
	log.Printf("Total Start Requests Sent: %d", requestCounter)
	log.Printf("Successful Starts: %d, Conflicts (already active): %d", successCounter, conflictCounter)
	log.Printf("Measured RPS: %.2f (Goal: %d)", float64(requestCounter)/elapsed.Seconds(), rpsGoal)
	log.Printf("Active cycles in project %d after the storm: %d (must be exactly 1)", projectID, activeCount)

	if activeCount != 1 {
		log.Fatalf("INVARIANT VIOLATED: %d active cycles left in project %d", activeCount, projectID)
	}
	log.Println("Invariant held: exactly one active cycle.")
}

// --- Helper Functions ---

func setupTestData(projectID int) []cycle {
	cycles := make([]cycle, 0, cycleCount)
	startDate := time.Now().UTC().Truncate(24 * time.Hour)

	for i := 0; i < cycleCount; i++ {
		body := fmt.Sprintf(
			`{"project_id": %d, "name": "StressCycle_%d", "start_date": %q, "end_date": %q}`,
			projectID, i,
			startDate.AddDate(0, 0, i*14).Format(time.RFC3339),
			startDate.AddDate(0, 0, i*14+14).Format(time.RFC3339),
		)
		resp, err := http.Post(baseURL+"/cycles", "application/json", bytes.NewBufferString(body))
		if err != nil || resp.StatusCode != http.StatusCreated {
			if resp != nil {
				resp.Body.Close()
			}
			log.Fatal("Failed to create test cycle. Is the server running?")
		}

		var c cycle
		json.NewDecoder(resp.Body).Decode(&c)
		resp.Body.Close()
		cycles = append(cycles, c)
	}
	return cycles
}

func startCycle(cycleID int) (int, error) {
	url := fmt.Sprintf("%s/cycles/%d/start", baseURL, cycleID)
	req, _ := http.NewRequest(http.MethodPost, url, nil)

	client := http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return resp.StatusCode, nil
}

func countActiveCycles(projectID int) int {
	url := fmt.Sprintf("%s/projects/%d/cycles?status=ACTIVE", baseURL, projectID)
	resp, err := http.Get(url)
	if err != nil {
		log.Fatalf("Failed to list active cycles: %v", err)
	}
	defer resp.Body.Close()

	var cycles []cycle
	if err := json.NewDecoder(resp.Body).Decode(&cycles); err != nil {
		log.Fatalf("Failed to decode cycle list: %v", err)
	}
	return len(cycles)
}
