package models

import "time"

// WeatherObservation is a point-in-time reading for a location. Simulated
// marks provenance: downstream consumers must surface it to the caller,
// never hide it.
type WeatherObservation struct {
	Location    string    `json:"location"`
	Condition   string    `json:"condition"`
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidity"`
	Pressure    int       `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"`
	RetrievedAt time.Time `json:"retrieved_at"`
	Simulated   bool      `json:"simulated"`
}

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskAssessment is derived purely from an observation and a location;
// it is recomputed on every call and holds no state.
type RiskAssessment struct {
	RiskScore           int       `json:"risk_score"`
	RiskLevel           RiskLevel `json:"risk_level"`
	ContributingFactors []string  `json:"contributing_factors"`
	Recommendations     []string  `json:"recommendations"`
	RegionalNote        string    `json:"regional_note"`
}

type WeatherAlertRequest struct {
	Location       string `json:"location"`
	UseRealWeather bool   `json:"use_real_weather"`
}

type WeatherAlertResponse struct {
	Workflow    string             `json:"workflow"`
	Location    string             `json:"location"`
	WeatherData WeatherObservation `json:"weather_data"`
	Assessment  RiskAssessment     `json:"risk_assessment"`
	AIAdvice    string             `json:"ai_advice"`
	Timestamp   time.Time          `json:"timestamp"`
}

// AlertRecord is one persisted weather alert. IDs are sequential within
// the log file.
type AlertRecord struct {
	ID          int64              `json:"id"`
	Location    string             `json:"location"`
	Observation WeatherObservation `json:"observation"`
	Assessment  RiskAssessment     `json:"assessment"`
	Advice      string             `json:"advice"`
	CreatedAt   time.Time          `json:"created_at"`
}

type RecentAlertsResponse struct {
	Alerts       []AlertRecord     `json:"alerts"`
	TotalMatched int               `json:"total_matched"`
	CountsByRisk map[RiskLevel]int `json:"counts_by_risk"`
	WindowHours  int               `json:"window_hours"`
}
