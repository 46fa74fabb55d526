package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the server-authoritative gameplay balance numbers.
// Everything here is loaded once at startup; systems receive the value
// by copy and never reload mid-run.
type Tuning struct {
	TickRateHz          int `yaml:"tick_rate_hz"`
	BroadcastEveryTicks int `yaml:"broadcast_every_ticks"`

	ViewRadius           float64 `yaml:"view_radius"`
	DisconnectGraceTicks uint64  `yaml:"disconnect_grace_ticks"`
	LootBagLifetimeTicks uint64  `yaml:"loot_bag_lifetime_ticks"`

	Physics    PhysicsTuning    `yaml:"physics"`
	Combat     CombatTuning     `yaml:"combat"`
	Building   BuildingTuning   `yaml:"building"`
	Movement   MovementTuning   `yaml:"movement"`
	RateLimits RateLimitsTuning `yaml:"rate_limits"`
	Broadcast  BroadcastTuning  `yaml:"broadcast"`
}

// PhysicsTuning controls the per-tick physics integration.
type PhysicsTuning struct {
	Gravity             float64 `yaml:"gravity"`           // m/s^2 downward
	WaterGravity        float64 `yaml:"water_gravity"`     // reduced/buoyant vertical accel
	WaterDragK          float64 `yaml:"water_drag_k"`      // exponential horizontal drag constant
	TerminalVelocity    float64 `yaml:"terminal_velocity"` // max fall speed
	GroundSnapTolerance float64 `yaml:"ground_snap_tolerance"`
}

// CombatTuning controls melee and projectile resolution.
type CombatTuning struct {
	MeleeConeDeg       float64 `yaml:"melee_cone_deg"` // full cone angle
	VerticalTolerance  float64 `yaml:"vertical_tolerance"`
	EyeHeight          float64 `yaml:"eye_height"`
	HeadZoneRatio      float64 `yaml:"head_zone_ratio"`  // >= of target height is head
	TorsoZoneRatio     float64 `yaml:"torso_zone_ratio"` // >= is torso, below is legs
	HeadMultiplier     float64 `yaml:"head_multiplier"`
	TorsoMultiplier    float64 `yaml:"torso_multiplier"`
	LegsMultiplier     float64 `yaml:"legs_multiplier"`
	ArmorReductionCap  float64 `yaml:"armor_reduction_cap"`
	KnockbackScale     float64 `yaml:"knockback_scale"`
	ProjectileGravity  float64 `yaml:"projectile_gravity"`
	MaxSubstepDistance float64 `yaml:"max_substep_distance"` // anti-tunneling bound
}

// BuildingTuning controls placement validation.
type BuildingTuning struct {
	GridSize         float64 `yaml:"grid_size"`
	WallHeight       float64 `yaml:"wall_height"`
	PlaceRange       float64 `yaml:"place_range"`
	SupportRadius    float64 `yaml:"support_radius"`
	CollisionEpsilon float64 `yaml:"collision_epsilon"`
	DemolishRefund   float64 `yaml:"demolish_refund"` // fraction of current-tier cost
}

// MovementTuning controls input-driven movement.
type MovementTuning struct {
	MoveSpeed    float64 `yaml:"move_speed"`
	SprintFactor float64 `yaml:"sprint_factor"`
	CrouchFactor float64 `yaml:"crouch_factor"`
	JumpVelocity float64 `yaml:"jump_velocity"`
}

// RateLimitsTuning is the sliding-window budget per player+action,
// measured in ticks.
type RateLimitsTuning struct {
	InputWindowTicks    uint64 `yaml:"input_window_ticks"`
	InputMax            int    `yaml:"input_max"`
	BuildWindowTicks    uint64 `yaml:"build_window_ticks"`
	BuildMax            int    `yaml:"build_max"`
	InteractWindowTicks uint64 `yaml:"interact_window_ticks"`
	InteractMax         int    `yaml:"interact_max"`
	FireWindowTicks     uint64 `yaml:"fire_window_ticks"`
	FireMax             int    `yaml:"fire_max"`
}

// BroadcastTuning controls delta comparison thresholds.
type BroadcastTuning struct {
	PositionEpsilon float64 `yaml:"position_epsilon"`
	RotationEpsilon float64 `yaml:"rotation_epsilon"`
}

// DefaultTuning returns the built-in balance table.
func DefaultTuning() Tuning {
	return Tuning{
		TickRateHz:           20,
		BroadcastEveryTicks:  2,
		ViewRadius:           64,
		DisconnectGraceTicks: 1200, // 60s at 20 TPS
		LootBagLifetimeTicks: 6000, // 5min at 20 TPS

		Physics: PhysicsTuning{
			Gravity:             22.0,
			WaterGravity:        4.0,
			WaterDragK:          3.0,
			TerminalVelocity:    40.0,
			GroundSnapTolerance: 0.35,
		},
		Combat: CombatTuning{
			MeleeConeDeg:       60,
			VerticalTolerance:  2.5,
			EyeHeight:          1.6,
			HeadZoneRatio:      0.8,
			TorsoZoneRatio:     0.4,
			HeadMultiplier:     2.0,
			TorsoMultiplier:    1.0,
			LegsMultiplier:     0.75,
			ArmorReductionCap:  0.75,
			KnockbackScale:     6.0,
			ProjectileGravity:  6.0,
			MaxSubstepDistance: 0.5,
		},
		Building: BuildingTuning{
			GridSize:         3.0,
			WallHeight:       3.0,
			PlaceRange:       8.0,
			SupportRadius:    7.0,
			CollisionEpsilon: 0.05,
			DemolishRefund:   0.5,
		},
		Movement: MovementTuning{
			MoveSpeed:    5.5,
			SprintFactor: 1.5,
			CrouchFactor: 0.5,
			JumpVelocity: 7.5,
		},
		RateLimits: RateLimitsTuning{
			InputWindowTicks:    20,
			InputMax:            40,
			BuildWindowTicks:    20,
			BuildMax:            5,
			InteractWindowTicks: 20,
			InteractMax:         10,
			FireWindowTicks:     20,
			FireMax:             12,
		},
		Broadcast: BroadcastTuning{
			PositionEpsilon: 0.01,
			RotationEpsilon: 0.005,
		},
	}
}

// LoadTuning reads a YAML tuning file. Zero-valued fields fall back to
// the built-in defaults so partial files stay valid.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning: %w", err)
	}
	if t.TickRateHz <= 0 {
		return t, fmt.Errorf("tuning: tick_rate_hz must be positive")
	}
	if t.BroadcastEveryTicks <= 0 {
		return t, fmt.Errorf("tuning: broadcast_every_ticks must be positive")
	}
	return t, nil
}
