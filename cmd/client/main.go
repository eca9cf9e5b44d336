package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/phonebook-service/pkg/model"
)

var firstNames = []string{
	"Olivia", "Noah", "Jack", "Isla", "Charlie", "Mia", "Lucas", "Amelia", "Leo", "Evie",
	"Harper", "Hudson", "Zoe", "Cooper", "Ruby", "Henry", "Sophie", "Archie", "Chloe", "Ethan",
}

var surnames = []string{
	"Smith", "Brown", "Williams", "Taylor", "Wilson", "Johnson", "Anderson", "Martin", "Thompson", "White",
	"Harris", "Walker", "Young", "King", "Wright", "Scott", "Green", "Baker", "Adams", "Mitchell",
}

var suburbs = []string{
	"Brisbane City", "Fortitude Valley", "New Farm", "West End", "South Brisbane",
	"Kangaroo Point", "Toowong", "Indooroopilly", "Chermside", "Carindale",
}

var streets = []string{
	"Queen Street", "George Street", "Adelaide Street", "Boundary Street",
	"Vulture Street", "Given Terrace", "Logan Road",
}

// Usage example on the command line:
// > go run main.go
// > go run main.go --seed=100
// > go run main.go --url=http://localhost:9090 --sizes=100,500
func main() {
	var baseURL string
	var sizes []int
	var seed int
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Seeds the phonebook service or measures its response times",
		Run: func(cmd *cobra.Command, args []string) {
			if seed > 0 {
				seedRecords(baseURL, seed)
				return
			}
			benchmark(baseURL, sizes)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the phonebook service")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{1000, 5000, 10000}, "Number of requests per operation and round")
	cmd.Flags().IntVar(&seed, "seed", 0, "Create this many records with phone numbers 0400000001 onwards, then exit")
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

// seedRecords creates count records. Phone numbers that are already taken are skipped, so seeding
// twice does not create duplicates.
func seedRecords(baseURL string, count int) {
	created := 0
	for i := 1; i <= count; i++ {
		fields := randomFields(fmt.Sprintf("04%08d", i))
		status, _, _ := sendPostRequest(baseURL, fields)
		if status == http.StatusCreated {
			created++
		}
	}
	fmt.Printf("created %d of %d records\n", created, count)
}

// benchmark prints the average duration in microseconds of each operation for every size.
func benchmark(baseURL string, sizes []int) {
	runID := time.Now().Unix() % 100000
	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET      LIST    DELETE ")
	fmt.Println("-------------------------------------------------------------")
	for round, loops := range sizes {
		if loops < 1 {
			continue
		}
		fmt.Printf("%10d", loops)
		ids := make([]int64, 0, loops)
		phones := make(map[int64]string, loops)
		{
			// POST requests
			var duration int64
			for i := 0; i < loops; i++ {
				phone := fmt.Sprintf("+61 %05d %02d %07d", runID, round, i)
				status, record, d := sendPostRequest(baseURL, randomFields(phone))
				if status == http.StatusCreated {
					ids = append(ids, record.Id)
					phones[record.Id] = phone
				}
				duration += d
			}
			fmt.Printf("%10d", duration/int64(loops*1000))
		}
		{
			// PUT requests
			f := func(id int64) int64 {
				body, _ := json.Marshal(randomFields(phones[id]))
				_, _, d := sendRequest(http.MethodPut, recordURL(baseURL, id), bytes.NewReader(body))
				return d
			}
			callInLoop(ids, f)
		}
		{
			// GET requests
			f := func(id int64) int64 {
				_, _, d := sendRequest(http.MethodGet, recordURL(baseURL, id), nil)
				return d
			}
			callInLoop(ids, f)
		}
		{
			// LIST requests
			f := func(id int64) int64 {
				url := baseURL + "/records?search=" + surnames[id%int64(len(surnames))] +
					"&sort=postcode&direction=desc&page=" + strconv.FormatInt(id%5+1, 10)
				_, _, d := sendRequest(http.MethodGet, url, nil)
				return d
			}
			callInLoop(ids, f)
		}
		{
			// DELETE requests
			f := func(id int64) int64 {
				_, _, d := sendRequest(http.MethodDelete, recordURL(baseURL, id), nil)
				return d
			}
			callInLoop(ids, f)
		}
		fmt.Println()
	}
}

func callInLoop(ids []int64, f func(id int64) int64) {
	if len(ids) == 0 {
		fmt.Printf("%10s", "-")
		return
	}
	shuffled := make([]int64, len(ids))
	copy(shuffled, ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var duration int64
	for _, id := range shuffled {
		duration += f(id)
	}
	fmt.Printf("%10d", duration/int64(len(ids)*1000))
}

func randomFields(phone string) model.ContactFields {
	address := fmt.Sprintf("%d %s", rand.Intn(200)+1, streets[rand.Intn(len(streets))])
	city := suburbs[rand.Intn(len(suburbs))]
	state := "QLD"
	postcode := strconv.Itoa(4000 + rand.Intn(201))
	return model.ContactFields{
		FirstName: firstNames[rand.Intn(len(firstNames))],
		Surname:   surnames[rand.Intn(len(surnames))],
		Phone:     phone,
		Address1:  &address,
		City:      &city,
		State:     &state,
		Postcode:  &postcode,
	}
}

func recordURL(baseURL string, id int64) string {
	return fmt.Sprintf("%s/records/%d", baseURL, id)
}

func sendPostRequest(baseURL string, fields model.ContactFields) (int, model.ContactRecord, int64) {
	body, err := json.Marshal(fields)
	if err != nil {
		fmt.Println("could not marshal JSON", err)
		panic(err)
	}
	status, resBody, duration := sendRequest(http.MethodPost, baseURL+"/records", bytes.NewReader(body))
	var record model.ContactRecord
	if status != http.StatusCreated {
		var message model.MessageResponse
		json.Unmarshal(resBody, &message)
		fmt.Println("could not create record", fields.Phone, message.Message, message.Errors)
		return status, record, duration
	}
	if err := json.Unmarshal(resBody, &record); err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	return status, record, duration
}

func sendRequest(method string, requestURL string, bodyReader io.Reader) (int, []byte, int64) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	return res.StatusCode, resBody, after - before
}
