package buildcode_test

import (
	"bytes"
	"encoding/base64"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/buildcode"
)

// encodeRaw/inflateRaw drive the same base64(URL)/raw-deflate framing
// buildcode uses internally, so tests can hand-construct a build code
// from arbitrary XML and inspect what Encode actually produced.
func encodeRaw(t *testing.T, xmlDoc string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(xmlDoc))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

func inflateRaw(t *testing.T, code string) (string, error) {
	t.Helper()
	compressed, err := base64.URLEncoding.DecodeString(code)
	require.NoError(t, err)
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out), nil
}

func sampleCode(t *testing.T) string {
	t.Helper()
	b := build.Build{
		Class:      build.ClassWitch,
		Level:      90,
		Ascendancy: "Necromancer",
		Allocated:  map[int]bool{1: true, 2: true, 3: true},
	}
	code, err := buildcode.Encode(b, &buildcode.Envelope{})
	require.NoError(t, err)
	return code
}

func TestRoundTripUnchangedBuild(t *testing.T) {
	code := sampleCode(t)

	decoded, env, err := buildcode.Decode(code)
	require.NoError(t, err)

	reEncoded, err := buildcode.Encode(decoded, env)
	require.NoError(t, err)

	redecoded, _, err := buildcode.Decode(reEncoded)
	require.NoError(t, err)

	assert.Equal(t, decoded.Class, redecoded.Class)
	assert.Equal(t, decoded.Level, redecoded.Level)
	assert.Equal(t, decoded.Ascendancy, redecoded.Ascendancy)
	assert.Equal(t, decoded.Allocated, redecoded.Allocated)
}

// TestUnchangedBuildIsByteForByte covers spec.md scenario S2: exporting
// a build that was never mutated must return the exact input bytes,
// not merely an equivalent re-encoding.
func TestUnchangedBuildIsByteForByte(t *testing.T) {
	code := sampleCode(t)

	decoded, env, err := buildcode.Decode(code)
	require.NoError(t, err)

	reEncoded, err := buildcode.Encode(decoded, env)
	require.NoError(t, err)

	assert.Equal(t, code, reEncoded, "exporting an unmutated build must return the original bytes untouched")
}

// TestEncodePreservesUnrelatedFragments builds a hand-written document
// with attributes on Items/Skills/Config that buildcode doesn't model,
// mutates only the allocated node set, and checks every byte of those
// untouched fragments survives the round trip — this is the gap the
// review flagged: Encode must splice, never re-marshal.
func TestEncodePreservesUnrelatedFragments(t *testing.T) {
	xmlDoc := `<?xml version="1.0"?>` +
		`<PathOfBuilding>` +
		`<Build level="85" className="Ranger" ascendClassName="Deadeye"></Build>` +
		`<Tree activeSpec="0" nodes="1,2"></Tree>` +
		`<Items useSecondWeaponSet="false" activeItemSet="1"><Item id="7">rare item text</Item></Items>` +
		`<Skills sortGemsByDPS="true"><SkillSet id="1"></SkillSet></Skills>` +
		`<Config resistancePenalty="-60"></Config>` +
		`<TreeView searchStr="life"></TreeView>` +
		`</PathOfBuilding>`

	code, err := encodeRaw(t, xmlDoc)
	require.NoError(t, err)

	decoded, env, err := buildcode.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, build.ClassRanger, decoded.Class)
	assert.Equal(t, 85, decoded.Level)
	assert.Equal(t, "Deadeye", decoded.Ascendancy)
	assert.Equal(t, map[int]bool{1: true, 2: true}, decoded.Allocated)

	mutated := decoded
	mutated.Allocated = map[int]bool{1: true, 2: true, 3: true}

	reEncoded, err := buildcode.Encode(mutated, env)
	require.NoError(t, err)

	redecodedBuild, _, err := buildcode.Decode(reEncoded)
	require.NoError(t, err)
	assert.Equal(t, mutated.Allocated, redecodedBuild.Allocated)

	rawXML, err := inflateRaw(t, reEncoded)
	require.NoError(t, err)
	assert.Contains(t, rawXML, `<Item id="7">rare item text</Item>`)
	assert.Contains(t, rawXML, `useSecondWeaponSet="false"`)
	assert.Contains(t, rawXML, `sortGemsByDPS="true"`)
	assert.Contains(t, rawXML, `resistancePenalty="-60"`)
	assert.Contains(t, rawXML, `searchStr="life"`)
	assert.Contains(t, rawXML, `nodes="1,2,3"`)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := buildcode.Decode("not-a-valid-build-code!!")
	assert.Error(t, err)
}
