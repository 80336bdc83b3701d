package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Location is a geographical point on a delivery route.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Visit is one client stop with the odometer reading on arrival.
type Visit struct {
	TripID     string   `json:"tripId"`
	ClientName string   `json:"clientName"`
	VisitType  string   `json:"visitType"`
	InitialKm  float64  `json:"initialKm"`
	Location   Location `json:"location"`
	Timestamp  string   `json:"timestamp"`
}

// Trip is a day of driving for one vehicle.
type Trip struct {
	ID        string `json:"localId,omitempty"`
	Name      string `json:"name"`
	VehicleID string `json:"vehicleId"`
	Base      string `json:"base"`
}

// Vehicle is a fleet vehicle identified by its license plate.
type Vehicle struct {
	ID           string `json:"localId,omitempty"`
	LicensePlate string `json:"licensePlate"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
}

// Expense is a cost incurred during a trip.
type Expense struct {
	TripID      string  `json:"tripId"`
	ExpenseType string  `json:"expenseType"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// Fueling is a fuel stop with the odometer reading at the pump.
type Fueling struct {
	TripID        string  `json:"tripId"`
	VehicleID     string  `json:"vehicleId"`
	Liters        float64 `json:"liters"`
	PricePerLiter float64 `json:"pricePerLiter"`
	OdometerKm    float64 `json:"odometerKm"`
}

// Bases for realistic routes
var bases = []struct {
	Name   string
	Center Location
}{
	{"POA", Location{Lat: -30.0346, Lon: -51.2177}}, // Porto Alegre
	{"SP", Location{Lat: -23.5505, Lon: -46.6333}},  // São Paulo
	{"RJ", Location{Lat: -22.9068, Lon: -43.1729}},  // Rio de Janeiro
	{"BH", Location{Lat: -19.9167, Lon: -43.9345}},  // Belo Horizonte
	{"CWB", Location{Lat: -25.4284, Lon: -49.2733}}, // Curitiba
	{"FLN", Location{Lat: -27.5954, Lon: -48.5480}}, // Florianópolis
	{"BSB", Location{Lat: -15.8267, Lon: -47.9218}}, // Brasília
	{"REC", Location{Lat: -8.0476, Lon: -34.8770}},  // Recife
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

var authToken string

func authorizedPost(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func postJSON(apiURL, path string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := authorizedPost(apiURL+path, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

func login(apiURL, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	payload := map[string]string{"username": username, "password": password}
	if err := postJSON(apiURL, "/auth/login", payload, &resp); err != nil {
		// first run: register the simulated driver
		register := map[string]string{
			"name":     "Simulated Driver",
			"email":    username + "@rotacerta.sim",
			"username": username,
			"password": password,
			"role":     "driver",
			"base":     bases[rand.Intn(len(bases))].Name,
		}
		if err := postJSON(apiURL, "/auth/register", register, &resp); err != nil {
			return fmt.Errorf("login and registration both failed: %w", err)
		}
	}
	authToken = resp.Token
	return nil
}

func randomPlate() string {
	return fmt.Sprintf("%c%c%c%d%c%d%d",
		'A'+rand.Intn(26), 'A'+rand.Intn(26), 'A'+rand.Intn(26),
		rand.Intn(10), 'A'+rand.Intn(26), rand.Intn(10), rand.Intn(10))
}

func createVehicle(apiURL string) (string, error) {
	models := []string{"Fiorino", "Kangoo", "Saveiro", "Strada", "HR"}

	vehicle := Vehicle{
		LicensePlate: randomPlate(),
		Model:        models[rand.Intn(len(models))],
		Year:         2018 + rand.Intn(7),
	}
	var created Vehicle
	if err := postJSON(apiURL, "/vehicles", vehicle, &created); err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"vehicle_id": created.ID,
		"plate":      vehicle.LicensePlate,
		"model":      vehicle.Model,
	}).Info("Created vehicle")
	return created.ID, nil
}

// nextOdometer advances the reading by a plausible leg distance. Readings
// only ever grow.
func nextOdometer(current float64) float64 {
	return current + 5 + rand.Float64()*40
}

func simulateDay(apiURL, vehicleID string, stops int) error {
	base := bases[rand.Intn(len(bases))]

	var trip Trip
	err := postJSON(apiURL, "/trips", Trip{
		Name:      fmt.Sprintf("Rota %s %s", base.Name, time.Now().Format("2006-01-02")),
		VehicleID: vehicleID,
		Base:      base.Name,
	}, &trip)
	if err != nil {
		return fmt.Errorf("failed to start trip: %w", err)
	}
	log.WithFields(log.Fields{"trip_id": trip.ID, "base": base.Name}).Info("Trip started")

	odometer := 10000 + rand.Float64()*90000
	visitTypes := []string{"Entrega", "Coleta", "Manutenção"}

	for i := 0; i < stops; i++ {
		odometer = nextOdometer(odometer)
		visit := Visit{
			TripID:     trip.ID,
			ClientName: fmt.Sprintf("Cliente %03d", rand.Intn(500)),
			VisitType:  visitTypes[rand.Intn(len(visitTypes))],
			InitialKm:  math.Round(odometer*10) / 10,
			Location:   jitterLocation(base.Center, 15000),
			Timestamp:  time.Now().Format(time.RFC3339),
		}
		if err := postJSON(apiURL, "/visits", visit, nil); err != nil {
			return fmt.Errorf("failed to record visit %d: %w", i+1, err)
		}
		log.WithFields(log.Fields{
			"trip_id": trip.ID,
			"stop":    i + 1,
			"km":      visit.InitialKm,
		}).Info("Visit recorded")

		// an occasional fuel stop or toll along the way
		if rand.Float64() < 0.3 {
			fueling := Fueling{
				TripID:        trip.ID,
				VehicleID:     vehicleID,
				Liters:        20 + rand.Float64()*30,
				PricePerLiter: 5.5 + rand.Float64()*0.8,
				OdometerKm:    math.Round(odometer*10) / 10,
			}
			if err := postJSON(apiURL, "/fuelings", fueling, nil); err != nil {
				return fmt.Errorf("failed to record fueling: %w", err)
			}
		}
		if rand.Float64() < 0.2 {
			expense := Expense{
				TripID:      trip.ID,
				ExpenseType: "Pedágio",
				Value:       math.Round((8+rand.Float64()*20)*100) / 100,
				Description: "pedágio na rota",
			}
			if err := postJSON(apiURL, "/expenses", expense, nil); err != nil {
				return fmt.Errorf("failed to record expense: %w", err)
			}
		}
	}

	finalKm := math.Round(nextOdometer(odometer)*10) / 10
	finish := map[string]interface{}{"tripId": trip.ID, "finalKm": finalKm}
	if err := postJSON(apiURL, "/trips/finish", finish, nil); err != nil {
		return fmt.Errorf("failed to finish trip: %w", err)
	}
	log.WithFields(log.Fields{"trip_id": trip.ID, "final_km": finalKm}).Info("Trip finished")

	// ask the backend to reconcile the day's records
	if err := postJSON(apiURL, "/sync", struct{}{}, nil); err != nil {
		log.WithError(err).Warn("Sync trigger failed, records stay pending")
	}
	return nil
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	days := 1
	if v := os.Getenv("SIM_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			days = n
		}
	}

	stops := 8
	if v := os.Getenv("SIM_STOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			stops = n
		}
	}

	username := os.Getenv("SIM_USERNAME")
	if username == "" {
		username = "sim-driver"
	}
	password := os.Getenv("SIM_PASSWORD")
	if password == "" {
		password = "simulator-pass-1"
	}

	log.WithFields(log.Fields{
		"api_url": apiURL,
		"days":    days,
		"stops":   stops,
	}).Info("Starting route simulation")

	if err := login(apiURL, username, password); err != nil {
		log.WithError(err).Fatal("Authentication failed")
	}

	vehicleID, err := createVehicle(apiURL)
	if err != nil {
		log.WithError(err).Fatal("Vehicle creation failed")
	}

	for day := 1; day <= days; day++ {
		if err := simulateDay(apiURL, vehicleID, stops); err != nil {
			log.WithError(err).WithField("day", day).Error("Day simulation failed")
			continue
		}
	}

	log.Info("Route simulation completed")
}
