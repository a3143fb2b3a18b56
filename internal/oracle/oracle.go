// Package oracle is the Calculation Oracle (C4): it loads the
// game-math engine (a small embedded JS corpus, standing in for the
// real ~50k-line engine vendored verbatim), installs the environment
// contract the engine expects, and runs it against a build.Build to
// produce BuildStats.
//
// The oracle's runtime is single-threaded and non-reentrant; callers
// must serialize access through internal/gate.Gate. This package does
// not itself lock anything.
package oracle

import (
	"bytes"
	"compress/zlib"
	"embed"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	"github.com/dop251/goja"
	"github.com/klauspost/compress/flate"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/apperrors"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/metrics"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

//go:embed engine/*.js
var engineFS embed.FS

// engineLoadOrder is the fixed module load sequence the engine
// expects; host-function stubs are installed between constants and
// modstore by Initialize, not loaded from a file.
var engineLoadOrder = []string{
	"engine/01_utils.js",
	"engine/02_constants.js",
	"engine/04_modstore.js",
	"engine/05_modlist.js",
	"engine/06_moddb.js",
	"engine/07_calctools.js",
	"engine/08_calcs.js",
}

// BuildStats is the value type returned by the oracle.
type BuildStats struct {
	TotalDPS      float64
	EffectiveHP   float64
	Life          float64
	Mana          float64
	EnergyShield  float64
	Resistances   Resistances
	Armour        float64
	Evasion       float64
	BlockChance   float64
	Extra         map[string]float64 // any additional scalar fields the engine exposes
}

// Resistances holds the four resistance pools the engine tracks.
type Resistances struct {
	Fire      float64
	Cold      float64
	Lightning float64
	Chaos     float64
}

// Oracle loads and drives one instance of the embedded game-math
// engine. Not safe for concurrent use — see the package doc.
type Oracle struct {
	graph   *treegraph.Graph
	vm      *goja.Runtime
	calc    goja.Callable
	ready   bool
	metrics *metrics.Metrics
}

// New creates an Oracle bound to the given passive tree graph. Call
// Initialize before any Calculate.
func New(graph *treegraph.Graph) *Oracle {
	return &Oracle{graph: graph}
}

// SetMetrics attaches a Metrics collector so every Calculate call is
// recorded by outcome and duration. Optional; a nil or never-set
// collector means Calculate simply skips recording.
func (o *Oracle) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// Initialize bootstraps the engine: installs the game-constant and
// ailment/weapon fixtures, then loads the engine modules in the fixed
// order, installing the host stubs after the constants file and before
// modstore. Idempotent; safe to call once at startup. Expensive
// (tens of ms).
func (o *Oracle) Initialize() error {
	if o.ready {
		return nil
	}

	vm := goja.New()

	if err := installFixtures(vm); err != nil {
		return apperrors.EngineInit(fmt.Errorf("install fixtures: %w", err))
	}

	for _, path := range engineLoadOrder {
		if path == "engine/04_modstore.js" {
			if err := installHostStubs(vm); err != nil {
				return apperrors.EngineInit(fmt.Errorf("install host stubs: %w", err))
			}
		}
		src, err := engineFS.ReadFile(path)
		if err != nil {
			return apperrors.EngineInit(fmt.Errorf("read %s: %w", path, err))
		}
		if _, err := vm.RunString(string(src)); err != nil {
			return apperrors.EngineInit(fmt.Errorf("load %s: %w", path, err))
		}
	}

	calcVal := vm.Get("calculate")
	calc, ok := goja.AssertFunction(calcVal)
	if !ok {
		return apperrors.EngineInit(fmt.Errorf("engine did not define calculate()"))
	}

	o.vm = vm
	o.calc = calc
	o.ready = true
	return nil
}

// installHostStubs installs the no-op GUI/host APIs the engine calls
// into during init (console, window/process lifecycle, HTTP returning
// empty) and the live compression bridge.
func installHostStubs(vm *goja.Runtime) error {
	console := vm.NewObject()
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = console.Set("log", noop)
	_ = console.Set("warn", noop)
	_ = console.Set("error", noop)
	if err := vm.Set("console", console); err != nil {
		return err
	}

	window := vm.NewObject()
	_ = window.Set("exit", noop)
	_ = window.Set("restart", noop)
	if err := vm.Set("window", window); err != nil {
		return err
	}
	process := vm.NewObject()
	_ = process.Set("exit", noop)
	if err := vm.Set("process", process); err != nil {
		return err
	}

	emptyHTTPResponse := func(goja.FunctionCall) goja.Value {
		obj := vm.NewObject()
		_ = obj.Set("body", "")
		_ = obj.Set("status", 0)
		return obj
	}
	httpStub := vm.NewObject()
	_ = httpStub.Set("get", emptyHTTPResponse)
	_ = httpStub.Set("post", emptyHTTPResponse)
	if err := vm.Set("hostHTTP", httpStub); err != nil {
		return err
	}

	// Compression bridge: the engine's build-code pipeline invokes these
	// for zlib-style deflate/inflate with base64 wrapping. Bound to
	// klauspost/compress's flate implementation — the same codec backing
	// internal/buildcode's external wire format.
	deflateFn := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.ToValue("deflate: missing argument"))
		}
		raw := []byte(call.Arguments[0].String())
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			panic(vm.ToValue("deflate: " + err.Error()))
		}
		if _, err := w.Write(raw); err != nil {
			panic(vm.ToValue("deflate: " + err.Error()))
		}
		if err := w.Close(); err != nil {
			panic(vm.ToValue("deflate: " + err.Error()))
		}
		return vm.ToValue(base64.StdEncoding.EncodeToString(buf.Bytes()))
	}
	inflateFn := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.ToValue("inflate: missing argument"))
		}
		compressed, err := base64.StdEncoding.DecodeString(call.Arguments[0].String())
		if err != nil {
			panic(vm.ToValue("inflate: " + err.Error()))
		}
		r := flate.NewReader(bytes.NewReader(compressed))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			panic(vm.ToValue("inflate: " + err.Error()))
		}
		return vm.ToValue(string(out))
	}
	compression := vm.NewObject()
	_ = compression.Set("deflate", deflateFn)
	_ = compression.Set("inflate", inflateFn)
	if err := vm.Set("compression", compression); err != nil {
		return err
	}
	// zlib wrapping is offered alongside raw deflate since some callers
	// of the reference engine expect a zlib header.
	zlibStub := vm.NewObject()
	_ = zlibStub.Set("inflate", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.ToValue("zlib.inflate: missing argument"))
		}
		compressed, err := base64.StdEncoding.DecodeString(call.Arguments[0].String())
		if err != nil {
			panic(vm.ToValue("zlib.inflate: " + err.Error()))
		}
		r, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			panic(vm.ToValue("zlib.inflate: " + err.Error()))
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			panic(vm.ToValue("zlib.inflate: " + err.Error()))
		}
		return vm.ToValue(string(out))
	})
	return vm.Set("zlib", zlibStub)
}

// installFixtures installs the game-constant, ailment, and weapon/skill
// fixtures into the engine's `data` namespace.
func installFixtures(vm *goja.Runtime) error {
	data := vm.NewObject()

	constants := vm.NewObject()
	for k, v := range gameConstants() {
		_ = constants.Set(k, v)
	}
	if err := data.Set("constants", constants); err != nil {
		return err
	}

	ailments := vm.NewObject()
	_ = ailments.Set("all", canonicalAilments)
	_ = ailments.Set("elemental", elementalAilments)
	_ = ailments.Set("nonElemental", nonElementalAilments)
	damageType := vm.NewObject()
	for ailment, school := range ailmentDamageType {
		_ = damageType.Set(ailment, school)
	}
	_ = ailments.Set("damageType", damageType)
	caps := vm.NewObject()
	for ailment, c := range ailmentCaps {
		capObj := vm.NewObject()
		_ = capObj.Set("cap", c["cap"])
		_ = capObj.Set("precision", c["precision"])
		_ = caps.Set(ailment, capObj)
	}
	_ = ailments.Set("caps", caps)
	if err := data.Set("ailments", ailments); err != nil {
		return err
	}

	weapons := vm.NewObject()
	for class, w := range defaultWeaponTable() {
		wObj := vm.NewObject()
		for k, v := range w {
			_ = wObj.Set(k, v)
		}
		_ = weapons.Set(class, wObj)
	}
	if err := data.Set("defaultWeapons", weapons); err != nil {
		return err
	}

	skill := vm.NewObject()
	for k, v := range defaultAttackSkill() {
		_ = skill.Set(k, v)
	}
	if err := data.Set("defaultAttackSkill", skill); err != nil {
		return err
	}

	return vm.Set("data", data)
}

// Calculate serializes b into the engine's expected build-object
// shape, invokes calculate(), and converts the result back into
// BuildStats. It is synchronous and blocking.
func (o *Oracle) Calculate(b build.Build) (stats BuildStats, err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordOracleCalculation(outcome, time.Since(start))
		}
	}()

	if !o.ready {
		outcome = "engine_init_error"
		return BuildStats{}, apperrors.EngineInit(fmt.Errorf("oracle not initialized"))
	}

	buildObj, buildErr := o.buildObject(b)
	if buildErr != nil {
		outcome = "calculation_error"
		return BuildStats{}, apperrors.Calculation(buildErr)
	}

	resultVal, calcErr := o.calc(goja.Undefined(), buildObj)
	if calcErr != nil {
		outcome = "engine_runtime_error"
		if gojaErr, ok := calcErr.(*goja.Exception); ok {
			return BuildStats{}, apperrors.EngineRuntime(fmt.Errorf("%v", gojaErr.Value()))
		}
		return BuildStats{}, apperrors.EngineRuntime(calcErr)
	}

	stats, err = exportBuildStats(resultVal)
	if err != nil {
		outcome = "engine_runtime_error"
	}
	return stats, err
}

// buildObject constructs the build-shaped object the engine's setup
// phase indexes into unconditionally — character/spec/itemsTab/
// skillsTab/partyTab, all collections present even when empty.
func (o *Oracle) buildObject(b build.Build) (goja.Value, error) {
	vm := o.vm

	character := vm.NewObject()
	_ = character.Set("level", b.Level)
	_ = character.Set("class", string(b.Class))

	allocatedIDs := b.SortedAllocated()
	allocatedNodes := make([]map[string]interface{}, 0, len(allocatedIDs))
	for _, id := range allocatedIDs {
		node, ok := o.graph.Node(id)
		if !ok {
			return nil, fmt.Errorf("allocated node %d not found in tree graph", id)
		}
		allocatedNodes = append(allocatedNodes, map[string]interface{}{
			"id":   node.ID,
			"stat": node.StatText,
			"type": string(node.Type),
		})
	}

	spec := vm.NewObject()
	_ = spec.Set("allocatedNodes", allocatedNodes)
	_ = spec.Set("masteries", vm.NewObject())
	_ = spec.Set("treeVersion", "3.0")

	itemsTab := vm.NewObject()
	_ = itemsTab.Set("items", []interface{}{})
	_ = itemsTab.Set("slots", []interface{}{})
	_ = itemsTab.Set("activeItemSet", vm.NewObject())

	socketGroup := vm.NewObject()
	_ = socketGroup.Set("enabled", true)
	_ = socketGroup.Set("gems", []interface{}{})
	skillsTab := vm.NewObject()
	_ = skillsTab.Set("socketGroups", []interface{}{socketGroup})

	partyTab := vm.NewObject()
	_ = partyTab.Set("actor", vm.NewObject())

	buildObj := vm.NewObject()
	_ = buildObj.Set("character", character)
	_ = buildObj.Set("spec", spec)
	_ = buildObj.Set("itemsTab", itemsTab)
	_ = buildObj.Set("skillsTab", skillsTab)
	_ = buildObj.Set("partyTab", partyTab)

	return buildObj, nil
}

func exportBuildStats(v goja.Value) (BuildStats, error) {
	exported, ok := v.Export().(map[string]interface{})
	if !ok {
		return BuildStats{}, apperrors.EngineRuntime(fmt.Errorf("calculate() returned non-object result"))
	}

	stats := BuildStats{
		TotalDPS:     floatField(exported, "total_dps"),
		EffectiveHP:  floatField(exported, "effective_hp"),
		Life:         floatField(exported, "life"),
		Mana:         floatField(exported, "mana"),
		EnergyShield: floatField(exported, "energy_shield"),
		Armour:       floatField(exported, "armour"),
		Evasion:      floatField(exported, "evasion"),
		BlockChance:  floatField(exported, "block_chance"),
		Extra:        map[string]float64{},
	}

	if resMap, ok := exported["resistances"].(map[string]interface{}); ok {
		stats.Resistances = Resistances{
			Fire:      floatField(resMap, "fire"),
			Cold:      floatField(resMap, "cold"),
			Lightning: floatField(resMap, "lightning"),
			Chaos:     floatField(resMap, "chaos"),
		}
	}

	known := map[string]bool{
		"total_dps": true, "effective_hp": true, "life": true, "mana": true,
		"energy_shield": true, "armour": true, "evasion": true, "block_chance": true,
		"resistances": true,
	}
	extraKeys := make([]string, 0, len(exported))
	for k := range exported {
		if !known[k] {
			extraKeys = append(extraKeys, k)
		}
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		stats.Extra[k] = floatField(exported, k)
	}

	return stats, nil
}

func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// CollectGarbage triggers an engine-internal full garbage collection,
// called after each completed optimization session to bound memory.
// goja has no explicit GC hook of its own (unlike the reference
// LuaJIT runtime's collectgarbage()), so this forces a Go GC cycle,
// which also reclaims the runtime's accumulated object graph.
func (o *Oracle) CollectGarbage() {
	runtime.GC()
}

// WarmUp runs one throwaway calculation against the given baseline
// build so the first user-visible calculation isn't the one paying
// the ~200ms JIT warm-up cost. Errors are ignored; this is best-effort.
func (o *Oracle) WarmUp(b build.Build) {
	start := time.Now()
	_, _ = o.Calculate(b)
	_ = time.Since(start)
}
