package repository

import (
	"time"

	"github.com/google/uuid"
)

// Wave types recorded for a sailing session
const (
	WaveFlat   = "Flat"
	WaveChoppy = "Choppy"
	WaveMedium = "Medium"
	WaveLarge  = "Large"
)

// WaveTypes lists all valid wave types
var WaveTypes = []string{WaveFlat, WaveChoppy, WaveMedium, WaveLarge}

// Equipment types for 49er gear
const (
	TypeMainsail    = "Mainsail"
	TypeJib         = "Jib"
	TypeGennaker    = "Gennaker"
	TypeMast        = "Mast"
	TypeBoom        = "Boom"
	TypeRudder      = "Rudder"
	TypeCenterboard = "Centerboard"
	TypeOther       = "Other"
)

// EquipmentTypes lists all valid equipment types
var EquipmentTypes = []string{
	TypeMainsail, TypeJib, TypeGennaker, TypeMast,
	TypeBoom, TypeRudder, TypeCenterboard, TypeOther,
}

// Jib halyard tension levels
const (
	TensionLoose  = "Loose"
	TensionMedium = "Medium"
	TensionTight  = "Tight"
)

// TensionLevels lists all valid jib halyard tension levels
var TensionLevels = []string{TensionLoose, TensionMedium, TensionTight}

// Thresholds for derived equipment state
const (
	// OldEquipmentThresholdDays is the age after which equipment counts as old (2 years)
	OldEquipmentThresholdDays = 730
	// WearReplacementThreshold is the accumulated hours after which
	// equipment is flagged for replacement
	WearReplacementThreshold = 500.0
)

// User represents a sailor account in the database
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	Username       string    `db:"username"`
	HashedPassword string    `db:"hashed_password"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}

// CanLogin reports whether the account is allowed to authenticate
func (u *User) CanLogin() bool {
	return u.IsActive
}

// AuthSession represents a refresh-token session in the database
type AuthSession struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	IPAddress *string   `db:"ip_address"`
	UserAgent *string   `db:"user_agent"`
}

// FailedLoginAttempt represents a failed login attempt for brute force protection
type FailedLoginAttempt struct {
	ID          uuid.UUID `db:"id"`
	Username    string    `db:"username"`
	IPAddress   string    `db:"ip_address"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// SailingSession represents a logged on-water training session
type SailingSession struct {
	ID                uuid.UUID   `db:"id"`
	Date              time.Time   `db:"date"`
	Location          string      `db:"location"`
	WindSpeedMin      float64     `db:"wind_speed_min"`
	WindSpeedMax      float64     `db:"wind_speed_max"`
	WaveType          string      `db:"wave_type"`
	WaveDirection     string      `db:"wave_direction"`
	HoursOnWater      float64     `db:"hours_on_water"`
	PerformanceRating int         `db:"performance_rating"`
	Notes             *string     `db:"notes"`
	EquipmentIDs      []uuid.UUID `db:"-"`
	CreatedBy         uuid.UUID   `db:"created_by"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

// AverageWindSpeed returns the midpoint of the recorded wind range
func (s *SailingSession) AverageWindSpeed() float64 {
	return (s.WindSpeedMin + s.WindSpeedMax) / 2
}

// WindRange returns the spread of the recorded wind range
func (s *SailingSession) WindRange() float64 {
	return s.WindSpeedMax - s.WindSpeedMin
}

// IsHeavyWeather reports whether the session was sailed in heavy conditions
func (s *SailingSession) IsHeavyWeather() bool {
	return s.AverageWindSpeed() > 20 || s.WaveType == WaveMedium || s.WaveType == WaveLarge
}

// IsLightWeather reports whether the session was sailed in light conditions
func (s *SailingSession) IsLightWeather() bool {
	return s.AverageWindSpeed() < 8 && (s.WaveType == WaveFlat || s.WaveType == WaveChoppy)
}

// Equipment represents a piece of 49er gear owned by a sailor
type Equipment struct {
	ID           uuid.UUID  `db:"id"`
	Name         string     `db:"name"`
	Type         string     `db:"type"`
	Manufacturer string     `db:"manufacturer"`
	Model        string     `db:"model"`
	PurchaseDate *time.Time `db:"purchase_date"`
	Notes        *string    `db:"notes"`
	Active       bool       `db:"active"`
	Wear         float64    `db:"wear"`
	OwnerID      uuid.UUID  `db:"owner_id"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// AgeInDays returns the days since purchase, or nil when the purchase
// date is unknown
func (e *Equipment) AgeInDays() *int {
	if e.PurchaseDate == nil {
		return nil
	}
	days := int(time.Since(*e.PurchaseDate).Hours() / 24)
	return &days
}

// IsOld reports whether the equipment is older than the given threshold in days
func (e *Equipment) IsOld(thresholdDays int) bool {
	age := e.AgeInDays()
	return age != nil && *age > thresholdDays
}

// NeedsReplacement reports whether accumulated wear exceeds the given
// threshold in hours
func (e *Equipment) NeedsReplacement(wearThreshold float64) bool {
	return e.Wear > wearThreshold
}

// EquipmentSettings holds the rig setup recorded for one sailing session
type EquipmentSettings struct {
	ID        uuid.UUID `db:"id"`
	SessionID uuid.UUID `db:"session_id"`

	// Rig tensions, 0-10 scale unless noted
	ForestayTension float64 `db:"forestay_tension"`
	ShroudTension   float64 `db:"shroud_tension"`
	MastRake        float64 `db:"mast_rake"` // degrees

	// Sail controls
	JibHalyardTension string  `db:"jib_halyard_tension"`
	Cunningham        float64 `db:"cunningham"`
	Outhaul           float64 `db:"outhaul"`
	Vang              float64 `db:"vang"`

	// Extended rig measurements
	MainTension float64 `db:"main_tension"`
	CapTension  float64 `db:"cap_tension"`
	CapHole     float64 `db:"cap_hole"`
	LowersScale float64 `db:"lowers_scale"`
	MainsScale  float64 `db:"mains_scale"`
	PreBend     float64 `db:"pre_bend"` // mm

	CreatedAt time.Time `db:"created_at"`
}

// IsHeavyWeatherSetup reports whether the rig is tuned for heavy conditions
func (s *EquipmentSettings) IsHeavyWeatherSetup() bool {
	return s.ForestayTension > 7 &&
		s.Cunningham > 6 &&
		s.Vang > 7 &&
		s.MainTension > 6
}

// IsLightWeatherSetup reports whether the rig is tuned for light conditions
func (s *EquipmentSettings) IsLightWeatherSetup() bool {
	return s.ForestayTension < 4 &&
		s.Cunningham < 3 &&
		s.JibHalyardTension == TensionLoose &&
		s.MainTension < 3
}
