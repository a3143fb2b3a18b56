package oracle

// gameConstants enumerates the ~40 scalar constants the engine reads
// from its data namespace. Values are representative of the game's
// documented rules; they are not tuned against any live balance patch.
func gameConstants() map[string]float64 {
	return map[string]float64{
		"resistancePlayerFloor":     -200,
		"resistancePlayerCap":       90,
		"resistanceEnemyFloor":      0,
		"resistanceEnemyCap":        100,
		"armourFormulaRatio":        10,
		"evasionFormulaRatio":       4,
		"accuracyFalloffFactor":     0.9,
		"critChanceCap":             100,
		"critMultiplierBase":        150,
		"blockChanceCap":            75,
		"spellBlockChanceCap":       75,
		"dodgeChanceCap":            75,
		"spellSuppressionCap":       100,
		"movementSpeedCap":          300,
		"lifeRegenBaseRate":         0.01,
		"manaRegenBaseRate":         0.02,
		"energyShieldRechargeDelay": 2,
		"energyShieldRechargeRate":  0.33,
		"stunThreshold":             0.15,
		"stunDurationBase":          0.35,
		"stunThresholdReduction":    0,
		"freezeThreshold":           0.15,
		"chillThresholdFactor":      0.05,
		"chillEffectCap":            30,
		"shockEffectCap":            50,
		"shockDurationBase":         2,
		"igniteDamageFactor":        0.9,
		"igniteDurationBase":        4,
		"bleedDamageFactor":         0.7,
		"bleedDurationBase":         5,
		"poisonDamageFactor":        0.3,
		"poisonDurationBase":        2,
		"scorchEffectCap":           30,
		"brittleEffectCap":          15,
		"sapEffectCap":              15,
		"ailmentThresholdFactor":    1,
		"fortifyCap":                20,
		"elementalAilmentCapBase":   100,
		"flaskLifeBase":             250,
		"flaskManaBase":             100,
	}
}

// canonicalAilments lists all nine ailments the engine must partition
// into elemental/non-elemental sets and map to a damage school.
var canonicalAilments = []string{
	"Ignite", "Scorch", "Brittle", "Shock", "Sap", "Chill", "Freeze", "Bleed", "Poison",
}

var elementalAilments = []string{"Ignite", "Scorch", "Chill", "Freeze", "Shock", "Brittle", "Sap"}
var nonElementalAilments = []string{"Bleed", "Poison"}

var ailmentDamageType = map[string]string{
	"Ignite":  "Fire",
	"Scorch":  "Fire",
	"Chill":   "Cold",
	"Freeze":  "Cold",
	"Shock":   "Lightning",
	"Brittle": "Cold",
	"Sap":     "Lightning",
	"Bleed":   "Physical",
	"Poison":  "Chaos",
}

// ailmentCaps holds per-ailment cap/precision fixtures.
var ailmentCaps = map[string]map[string]float64{
	"Ignite":  {"cap": 100, "precision": 1},
	"Scorch":  {"cap": 30, "precision": 1},
	"Brittle": {"cap": 15, "precision": 1},
	"Shock":   {"cap": 50, "precision": 1},
	"Sap":     {"cap": 15, "precision": 1},
	"Chill":   {"cap": 30, "precision": 1},
	"Freeze":  {"cap": 100, "precision": 1},
	"Bleed":   {"cap": 100, "precision": 1},
	"Poison":  {"cap": 100, "precision": 0.1},
}

// defaultWeaponTable returns the default unarmed weapon entry per
// class, plus a "_default" fallback.
func defaultWeaponTable() map[string]map[string]float64 {
	classes := map[string]float64{
		"Warrior": 7, "Ranger": 5, "Witch": 4, "Monk": 6, "Mercenary": 5.5, "Sorceress": 4,
	}
	table := make(map[string]map[string]float64, len(classes)+1)
	for class, base := range classes {
		table[class] = map[string]float64{"baseDamage": base}
	}
	table["_default"] = map[string]float64{"baseDamage": 5}
	return table
}

// defaultAttackSkill returns the level-1 stat set for the default
// attack skill every passive-only calculation falls back to.
func defaultAttackSkill() map[string]float64 {
	return map[string]float64{
		"baseHitsPerSecond":   1.2,
		"moreDamageMultiplier": 100,
	}
}
