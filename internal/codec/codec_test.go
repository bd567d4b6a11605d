package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

func testSession(id string) *models.Session {
	s := models.NewSession(id, "com.example.gaze", 1_700_000_000.25, models.DeviceInfo{
		Model:         "iPhone15,2",
		ScreenSize:    models.ScreenSize{Width: 390, Height: 844},
		SystemName:    "iOS",
		SystemVersion: "17.4",
	})
	s.ScanPath = []models.Gaze{
		{Timestamp: 1_700_000_000.3, X: 10, Y: 20, Orientation: 1},
		{Timestamp: 1_700_000_000.316, TrackingState: models.TrackingStateLimitedRelocalizing, X: 11.5, Y: -21, Orientation: 3},
	}
	s.Signals["eyeBlinkLeft"] = []models.SignalSample{
		{Timestamp: 1_700_000_000.3, SignalName: "eyeBlinkLeft", Value: 0.125},
	}
	s.Signals["mouthSmile_L"] = []models.SignalSample{
		{Timestamp: 1_700_000_000.3, TrackingState: models.TrackingStateNotAvailable, SignalName: "mouthSmile_L", Value: 0},
	}
	s.Finalize(1_700_000_060.5)
	return s
}

func randomSession(r *rand.Rand, id string) *models.Session {
	begin := r.Float64() * 2e9
	s := models.NewSession(id, fmt.Sprintf("app-%d", r.IntN(5)), begin, models.DeviceInfo{
		Model:      fmt.Sprintf("model-%d", r.IntN(100)),
		ScreenSize: models.ScreenSize{Width: r.Float64() * 1000, Height: r.Float64() * 2000},
	})
	states := []models.TrackingState{
		models.TrackingStateNormal,
		models.TrackingStateNotAvailable,
		models.TrackingStateLimitedExcessiveMotion,
		models.TrackingStateLimitedInsufficientFeatures,
	}
	ts := begin
	for range r.IntN(20) {
		ts += r.Float64() / 30
		s.ScanPath = append(s.ScanPath, models.Gaze{
			Timestamp:     ts,
			TrackingState: states[r.IntN(len(states))],
			X:             r.NormFloat64() * 400,
			Y:             r.NormFloat64() * 800,
			Orientation:   r.IntN(5),
		})
		for _, name := range []string{"browInnerUp", "jawOpen", "eyeLookInRight"} {
			if r.IntN(2) == 0 {
				continue
			}
			s.Signals[name] = append(s.Signals[name], models.SignalSample{
				Timestamp:  ts,
				SignalName: name,
				Value:      r.Float64(),
			})
		}
	}
	if r.IntN(3) > 0 {
		s.Finalize(ts + r.Float64())
	}
	return s
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"id":            "id",
		"appID":         "app_id",
		"beginTime":     "begin_time",
		"deviceInfo":    "device_info",
		"screenSize":    "screen_size",
		"trackingState": "tracking_state",
		"URLPath":       "url_path",
		"x":             "x",
		"value2Max":     "value2_max",
	}
	for in, want := range tests {
		require.Equal(t, want, SnakeCase(in), in)
	}
}

func TestParseKeyStrategy(t *testing.T) {
	for _, k := range []KeyStrategy{KeysAsDeclared, KeysSnakeCase} {
		got, err := ParseKeyStrategy(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}

	_, err := ParseKeyStrategy("kebab")
	require.Error(t, err)
}

func TestEncodeSession_Declared(t *testing.T) {
	data, err := EncodeSession(testSession("abc"), Options{})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "appID")
	require.Contains(t, raw, "beginTime")
	require.Contains(t, raw, "endTime")
	require.Contains(t, raw["signals"], "eyeBlinkLeft")
}

func TestEncodeSession_SnakeCase(t *testing.T) {
	data, err := EncodeSession(testSession("abc"), Options{Keys: KeysSnakeCase})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "app_id")
	require.Contains(t, raw, "begin_time")
	require.Contains(t, raw, "scan_path")
	require.NotContains(t, raw, "appID")

	device := raw["device_info"].(map[string]any)
	require.Contains(t, device, "screen_size")
	require.Contains(t, device, "system_version")

	gaze := raw["scan_path"].([]any)[1].(map[string]any)
	require.Equal(t, "limited.relocalizing", gaze["tracking_state"])

	// signal names are data
	signals := raw["signals"].(map[string]any)
	require.Contains(t, signals, "eyeBlinkLeft")
	require.Contains(t, signals, "mouthSmile_L")
	sample := signals["eyeBlinkLeft"].([]any)[0].(map[string]any)
	require.Contains(t, sample, "signal_name")
	require.Equal(t, "eyeBlinkLeft", sample["signal_name"])
}

func TestEncodeSession_ActiveOmitsEndTime(t *testing.T) {
	s := models.NewSession("live", "app", 1, models.DeviceInfo{})
	data, err := EncodeSession(s, Options{})
	require.NoError(t, err)
	require.NotContains(t, string(data), "endTime")
	require.Contains(t, string(data), `"scanPath":[]`)
	require.Contains(t, string(data), `"signals":{}`)
}

func TestEncodeSession_DoesNotMutate(t *testing.T) {
	s := &models.Session{ID: "abc", AppID: "app"}
	_, err := EncodeSession(s, Options{})
	require.NoError(t, err)
	require.Nil(t, s.ScanPath)
	require.Nil(t, s.Signals)
}

func TestEncodeSession_Indent(t *testing.T) {
	data, err := EncodeSession(testSession("abc"), Options{Indent: true, Keys: KeysSnakeCase})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "{\n  \""))
}

func TestRoundTrip(t *testing.T) {
	for _, keys := range []KeyStrategy{KeysAsDeclared, KeysSnakeCase} {
		t.Run(keys.String(), func(t *testing.T) {
			want := testSession("abc")

			data, err := EncodeSession(want, Options{Keys: keys})
			require.NoError(t, err)

			got, err := DecodeSession(data)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestRoundTrip_Random(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for i := range 200 {
		want := randomSession(r, fmt.Sprintf("s-%d", i))
		keys := KeyStrategy(i % 2)

		data, err := EncodeSession(want, Options{Keys: keys, Indent: i%3 == 0})
		require.NoError(t, err)

		got, err := DecodeSession(data)
		require.NoError(t, err)
		require.Equal(t, want, got, "keys=%s", keys)
	}
}

func TestRoundTrip_Sessions(t *testing.T) {
	want := []*models.Session{testSession("b"), testSession("a")}

	for _, keys := range []KeyStrategy{KeysAsDeclared, KeysSnakeCase} {
		data, err := EncodeSessions(want, Options{Keys: keys})
		require.NoError(t, err)

		got, err := DecodeSessions(data)
		require.NoError(t, err)
		require.Equal(t, want, got, "array order is kept")
	}

	data, err := EncodeSessions(nil, Options{})
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))

	_, err = EncodeSessions([]*models.Session{nil}, Options{})
	require.Error(t, err)
}

func TestDecodeSessions_KeyedObject(t *testing.T) {
	a, b := testSession("a"), testSession("b")
	b.BeginTime = a.BeginTime - 10

	encA, err := EncodeSession(a, Options{})
	require.NoError(t, err)
	encB, err := EncodeSession(b, Options{Keys: KeysSnakeCase})
	require.NoError(t, err)

	data := fmt.Sprintf(`{"a": %s, "b": %s}`, encA, encB)
	got, err := DecodeSessions([]byte(data))
	require.NoError(t, err)
	require.Equal(t, []*models.Session{b, a}, got)

	_, err = DecodeSessions([]byte(fmt.Sprintf(`{"zzz": %s}`, encA)))
	require.ErrorContains(t, err, "does not match")
}

func TestDecodeSession_MixedCasing(t *testing.T) {
	data := `{
		"id": "abc",
		"app_id": "app",
		"beginTime": 1.5,
		"device_info": {"model": "iPad", "screenSize": {"width": 1, "height": 2}},
		"scan_path": [{"timestamp": 2, "x": 3, "y": 4}],
		"signals": {"jaw_open": [{"timestamp": 2, "signal_name": "jaw_open", "value": 0.5}]},
		"extra": true
	}`

	got, err := DecodeSession([]byte(data))
	require.NoError(t, err)
	require.Equal(t, "app", got.AppID)
	require.Equal(t, 1.0, got.DeviceInfo.ScreenSize.Width)
	require.Equal(t, []models.Gaze{{Timestamp: 2, X: 3, Y: 4}}, got.ScanPath)
	require.Contains(t, got.Signals, "jaw_open")
	require.True(t, got.Active())
}

func TestDecodeSession_Malformed(t *testing.T) {
	valid, err := EncodeSession(testSession("abc"), Options{})
	require.NoError(t, err)

	mutate := func(f func(m map[string]any)) string {
		var m map[string]any
		require.NoError(t, json.Unmarshal(valid, &m))
		f(m)
		out, err := json.Marshal(m)
		require.NoError(t, err)
		return string(out)
	}

	tests := map[string]string{
		"not json":         `{"id": `,
		"trailing data":    string(valid) + `{}`,
		"array":            `[]`,
		"null":             `null`,
		"missing id":       mutate(func(m map[string]any) { delete(m, "id") }),
		"empty id":         mutate(func(m map[string]any) { m["id"] = " " }),
		"null appID":       mutate(func(m map[string]any) { m["appID"] = nil }),
		"missing scanPath": mutate(func(m map[string]any) { delete(m, "scanPath") }),
		"missing signals":  mutate(func(m map[string]any) { delete(m, "signals") }),
		"wrong type":       mutate(func(m map[string]any) { m["beginTime"] = "yesterday" }),
		"scanPath object":  mutate(func(m map[string]any) { m["scanPath"] = map[string]any{} }),
		"signals array":    mutate(func(m map[string]any) { m["signals"] = []any{} }),
		"duplicate casing": mutate(func(m map[string]any) { m["app_id"] = "other" }),
		"gaze missing x":   mutate(func(m map[string]any) { delete(m["scanPath"].([]any)[0].(map[string]any), "x") }),
		"sample no value": mutate(func(m map[string]any) {
			delete(m["signals"].(map[string]any)["eyeBlinkLeft"].([]any)[0].(map[string]any), "value")
		}),
		"fractional orient": mutate(func(m map[string]any) { m["scanPath"].([]any)[0].(map[string]any)["orientation"] = 1.5 }),
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeSession([]byte(input))
			require.Error(t, err)
			require.Nil(t, got)

			var serr *SerializationError
			require.True(t, errors.As(err, &serr), "got %T: %v", err, err)
			require.NotNil(t, serr.Err)
		})
	}
}

func TestDecodeSessions_Malformed(t *testing.T) {
	valid, err := EncodeSession(testSession("abc"), Options{})
	require.NoError(t, err)

	tests := map[string]string{
		"scalar":         `42`,
		"bad element":    `[1]`,
		"duplicate ids":  fmt.Sprintf(`[%s, %s]`, valid, valid),
		"bad keyed item": `{"abc": []}`,
		"one bad":        fmt.Sprintf(`[%s, {"id": "x"}]`, valid),
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeSessions([]byte(input))
			require.Nil(t, got)

			var serr *SerializationError
			require.ErrorAs(t, err, &serr)
		})
	}
}
