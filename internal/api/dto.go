package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in JSON, written as "2006-01-02". RFC 3339
// timestamps are accepted on input and truncated to their UTC day.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
		}
	}
	d.Time = domain.TruncateDay(t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// timePtr returns nil for an absent date.
func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func datePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

func parseObjectIDs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", h)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// --- identity ---

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID.Hex(),
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// --- clients ---

type ClientResponse struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Email              string                    `json:"email"`
	Phone              string                    `json:"phone"`
	BirthDate          Date                      `json:"birthDate"`
	Age                int                       `json:"age"`
	Weight             float64                   `json:"weight"`
	Height             float64                   `json:"height"`
	Goals              []string                  `json:"goals"`
	JoinDate           Date                      `json:"joinDate"`
	SubscriptionType   domain.SubscriptionType   `json:"subscriptionType"`
	SubscriptionStart  *Date                     `json:"subscriptionStart,omitempty"`
	SubscriptionEnd    *Date                     `json:"subscriptionEnd,omitempty"`
	SubscriptionStatus domain.SubscriptionStatus `json:"subscriptionStatus"`
	ProfileImage       string                    `json:"profileImage,omitempty"`
	Notes              string                    `json:"notes,omitempty"`
	EmergencyContact   string                    `json:"emergencyContact,omitempty"`
	MedicalConditions  string                    `json:"medicalConditions,omitempty"`
	UserID             *string                   `json:"userId,omitempty"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

func MapClientToResponse(c *domain.Client, now time.Time) ClientResponse {
	resp := ClientResponse{
		ID:                 c.ID.Hex(),
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		BirthDate:          Date{Time: c.BirthDate},
		Age:                c.Age(now),
		Weight:             c.Weight,
		Height:             c.Height,
		Goals:              c.Goals,
		JoinDate:           Date{Time: c.JoinDate},
		SubscriptionType:   c.SubscriptionType,
		SubscriptionStart:  datePtr(c.SubscriptionStart),
		SubscriptionEnd:    datePtr(c.SubscriptionEnd),
		SubscriptionStatus: c.SubscriptionStatusOn(now),
		ProfileImage:       c.ProfileImage,
		Notes:              c.Notes,
		EmergencyContact:   c.EmergencyContact,
		MedicalConditions:  c.MedicalConditions,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if resp.Goals == nil {
		resp.Goals = []string{}
	}
	if c.UserID != nil {
		hex := c.UserID.Hex()
		resp.UserID = &hex
	}
	return resp
}

func MapClientsToResponse(clients []domain.Client, now time.Time) []ClientResponse {
	out := make([]ClientResponse, len(clients))
	for i := range clients {
		out[i] = MapClientToResponse(&clients[i], now)
	}
	return out
}

type CredentialsResponse struct {
	ClientID        string `json:"clientId"`
	ClientName      string `json:"clientName"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	DefaultPassword string `json:"defaultPassword,omitempty"`
	Age             int    `json:"age"`
	BirthDate       Date   `json:"birthDate"`
}

func MapCredentialsToResponse(c service.Credentials) CredentialsResponse {
	return CredentialsResponse{
		ClientID:        c.ClientID.Hex(),
		ClientName:      c.ClientName,
		Username:        c.Username,
		Email:           c.Email,
		DefaultPassword: c.DefaultPassword,
		Age:             c.Age,
		BirthDate:       Date{Time: c.BirthDate},
	}
}

type StatisticsResponse struct {
	Total                int                             `json:"total"`
	ActiveSubscriptions  int                             `json:"activeSubscriptions"`
	ExpiredSubscriptions int                             `json:"expiredSubscriptions"`
	WithIdentity         int                             `json:"withIdentity"`
	BySubscriptionType   map[domain.SubscriptionType]int `json:"bySubscriptionType"`
	AverageAge           float64                         `json:"averageAge"`
	MinAge               int                             `json:"minAge"`
	MaxAge               int                             `json:"maxAge"`
	AverageWeight        float64                         `json:"averageWeight"`
	MinWeight            float64                         `json:"minWeight"`
	MaxWeight            float64                         `json:"maxWeight"`
}

// --- ledger ---

type AssignmentResponse struct {
	ID           string           `json:"id"`
	ClientID     string           `json:"clientId"`
	RoutineID    string           `json:"routineId"`
	StartDate    Date             `json:"startDate"`
	EndDate      *Date            `json:"endDate,omitempty"`
	IsActive     bool             `json:"isActive"`
	AssignedDays []domain.Weekday `json:"assignedDays"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func MapAssignmentToResponse(a *domain.ClientRoutine) AssignmentResponse {
	days := a.AssignedDays
	if days == nil {
		days = []domain.Weekday{}
	}
	return AssignmentResponse{
		ID:           a.ID.Hex(),
		ClientID:     a.ClientID.Hex(),
		RoutineID:    a.RoutineID.Hex(),
		StartDate:    Date{Time: a.StartDate},
		EndDate:      datePtr(a.EndDate),
		IsActive:     a.IsActive,
		AssignedDays: days,
		CreatedAt:    a.CreatedAt,
	}
}

func MapAssignmentsToResponse(list []domain.ClientRoutine) []AssignmentResponse {
	out := make([]AssignmentResponse, len(list))
	for i := range list {
		out[i] = MapAssignmentToResponse(&list[i])
	}
	return out
}

type ActiveRoutineResponse struct {
	Assignment AssignmentResponse `json:"assignment"`
	Routine    RoutineResponse    `json:"routine"`
}

type CompletionResponse struct {
	ID              string    `json:"id"`
	ClientRoutineID string    `json:"clientRoutineId"`
	ClientID        string    `json:"clientId"`
	WorkoutID       string    `json:"workoutId"`
	CompletedAt     time.Time `json:"completedAt"`
	Notes           string    `json:"notes,omitempty"`
	Rating          *int      `json:"rating"`
}

func MapCompletionToResponse(e *domain.RoutineProgress) CompletionResponse {
	return CompletionResponse{
		ID:              e.ID.Hex(),
		ClientRoutineID: e.ClientRoutineID.Hex(),
		ClientID:        e.ClientID.Hex(),
		WorkoutID:       e.WorkoutID.Hex(),
		CompletedAt:     e.CompletedAt,
		Notes:           e.Notes,
		Rating:          e.Rating,
	}
}

func MapCompletionsToResponse(list []domain.RoutineProgress) []CompletionResponse {
	out := make([]CompletionResponse, len(list))
	for i := range list {
		out[i] = MapCompletionToResponse(&list[i])
	}
	return out
}

// --- catalog ---

type RoutineResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	WorkoutIDs    []string         `json:"workoutIds"`
	Frequency     domain.Frequency `json:"frequency"`
	DaysPerWeek   int              `json:"daysPerWeek"`
	Duration      int              `json:"duration"`
	ScheduledDays []domain.Weekday `json:"scheduledDays"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func MapRoutineToResponse(r *domain.Routine) RoutineResponse {
	days := r.ScheduledDays
	if days == nil {
		days = []domain.Weekday{}
	}
	return RoutineResponse{
		ID:            r.ID.Hex(),
		Name:          r.Name,
		Description:   r.Description,
		WorkoutIDs:    hexIDs(r.WorkoutIDs),
		Frequency:     r.Frequency,
		DaysPerWeek:   r.DaysPerWeek,
		Duration:      r.Duration,
		ScheduledDays: days,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type FrequencyCountResponse struct {
	Frequency domain.Frequency `json:"frequency"`
	Count     int              `json:"count"`
}

type ValueRangeResponse struct {
	Avg float64 `json:"avg"`
	Min int     `json:"min"`
	Max int     `json:"max"`
}

type WorkoutCountResponse struct {
	WorkoutCount int `json:"workoutCount"`
	RoutineCount int `json:"routineCount"`
}

type PopularRoutineResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	ClientCount int              `json:"clientCount"`
	Frequency   domain.Frequency `json:"frequency"`
	Duration    int              `json:"duration"`
}

type RoutineStatisticsResponse struct {
	TotalRoutines   int                      `json:"totalRoutines"`
	FrequencyStats  []FrequencyCountResponse `json:"frequencyStats"`
	DurationStats   ValueRangeResponse       `json:"durationStats"`
	DaysStats       ValueRangeResponse       `json:"daysStats"`
	WorkoutCounts   []WorkoutCountResponse   `json:"workoutCountStats"`
	PopularRoutines []PopularRoutineResponse `json:"popularRoutines"`
}

func MapRoutineStatsToResponse(st *repository.RoutineStats) RoutineStatisticsResponse {
	resp := RoutineStatisticsResponse{
		TotalRoutines:   st.Total,
		FrequencyStats:  make([]FrequencyCountResponse, len(st.ByFrequency)),
		DurationStats:   ValueRangeResponse(st.Duration),
		DaysStats:       ValueRangeResponse(st.DaysPerWeek),
		WorkoutCounts:   make([]WorkoutCountResponse, len(st.ByWorkoutCount)),
		PopularRoutines: make([]PopularRoutineResponse, len(st.Popular)),
	}
	for i, f := range st.ByFrequency {
		resp.FrequencyStats[i] = FrequencyCountResponse(f)
	}
	for i, b := range st.ByWorkoutCount {
		resp.WorkoutCounts[i] = WorkoutCountResponse{WorkoutCount: b.Workouts, RoutineCount: b.Routines}
	}
	for i, p := range st.Popular {
		resp.PopularRoutines[i] = PopularRoutineResponse{
			ID:          p.ID.Hex(),
			Name:        p.Name,
			ClientCount: p.ClientCount,
			Frequency:   p.Frequency,
			Duration:    p.Duration,
		}
	}
	return resp
}

// --- metrics ---

type SnapshotResponse struct {
	ID           string             `json:"id"`
	ClientID     string             `json:"clientId"`
	Date         Date               `json:"date"`
	Weight       float64            `json:"weight"`
	BodyFat      *float64           `json:"bodyFat"`
	MuscleMass   *float64           `json:"muscleMass"`
	Measurements map[string]float64 `json:"measurements"`
	Photos       []string           `json:"photos,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func MapSnapshotToResponse(s *domain.ProgressSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:           s.ID.Hex(),
		ClientID:     s.ClientID.Hex(),
		Date:         Date{Time: s.Date},
		Weight:       s.Weight,
		BodyFat:      s.BodyFat,
		MuscleMass:   s.MuscleMass,
		Measurements: s.Measurements,
		Photos:       s.Photos,
		CreatedAt:    s.CreatedAt,
	}
}

func MapSnapshotsToResponse(list []domain.ProgressSnapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, len(list))
	for i := range list {
		out[i] = MapSnapshotToResponse(&list[i])
	}
	return out
}

type GoalResponse struct {
	ID           string              `json:"id"`
	ClientID     string              `json:"clientId"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	TargetValue  float64             `json:"targetValue"`
	CurrentValue float64             `json:"currentValue"`
	Unit         string              `json:"unit"`
	Deadline     Date                `json:"deadline"`
	Category     domain.GoalCategory `json:"category"`
	IsCompleted  bool                `json:"isCompleted"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func MapGoalToResponse(g *domain.Goal) GoalResponse {
	return GoalResponse{
		ID:           g.ID.Hex(),
		ClientID:     g.ClientID.Hex(),
		Title:        g.Title,
		Description:  g.Description,
		TargetValue:  g.TargetValue,
		CurrentValue: g.CurrentValue,
		Unit:         g.Unit,
		Deadline:     Date{Time: g.Deadline},
		Category:     g.Category,
		IsCompleted:  g.IsCompleted,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func MapGoalsToResponse(list []domain.Goal) []GoalResponse {
	out := make([]GoalResponse, len(list))
	for i := range list {
		out[i] = MapGoalToResponse(&list[i])
	}
	return out
}
