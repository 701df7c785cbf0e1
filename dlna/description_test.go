package dlna

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoRender/types"
)

func testDescriptor() types.DeviceDescriptor {
	return types.DeviceDescriptor{
		UDN:              "uuid:5a1f7b52-2b1e-4c3a-9d7e-000000000001",
		DeviceType:       types.DeviceTypeMediaRenderer,
		FriendlyName:     "Living Room & Kitchen",
		Manufacturer:     "Dummy Manufacturer",
		ManufacturerURL:  "http://example.com/manufacturer",
		ModelDescription: "A dummy DLNA DMR",
		ModelName:        "Dummy Model",
		ModelNumber:      "1",
		ModelURL:         "http://example.com/dummy_model",
		SerialNumber:     "12345678-1234-5678-1234-567812345678",
		ServiceList: []types.ServiceDescriptor{
			types.NewServiceDescriptor("AVTransport", types.ServiceTypeAVTransport),
			types.NewServiceDescriptor("RenderingControl", types.ServiceTypeRenderingControl),
			types.NewServiceDescriptor("ConnectionManager", types.ServiceTypeConnectionManager),
		},
	}
}

func TestDescriptionRoundTrip(t *testing.T) {
	want := testDescriptor()

	data, err := BuildDescription(want)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<root xmlns="urn:schemas-upnp-org:device-1-0">`)
	assert.Contains(t, string(data), "Living Room &amp; Kitchen")

	got, err := ParseDescription(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseDescriptionRejectsGarbage(t *testing.T) {
	_, err := ParseDescription([]byte("<html>nope</html>"))
	assert.Error(t, err)
}

func TestSCPDRoundTrip(t *testing.T) {
	actions := []SCPDAction{
		{
			Name: "SetVolume",
			Arguments: []SCPDArgument{
				{Name: "InstanceID", Direction: DirectionIn, RelatedStateVariable: "A_ARG_TYPE_InstanceID"},
				{Name: "DesiredVolume", Direction: DirectionIn, RelatedStateVariable: "Volume"},
			},
		},
		{Name: "ListPresets"},
	}
	vars := []StateVariable{
		{SendEvents: "no", Name: "A_ARG_TYPE_InstanceID", DataType: "ui4"},
		{SendEvents: "no", Name: "Volume", DataType: "ui2", AllowedValueRange: &AllowedValueRange{Minimum: 0, Maximum: 100, Step: 1}},
		{SendEvents: "no", Name: "A_ARG_TYPE_Channel", DataType: "string", AllowedValues: []string{"Master", "LF", "RF"}},
	}

	data, err := BuildSCPD(actions, vars)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<argumentList></argumentList>")
	assert.NotContains(t, string(data), "<allowedValueList></allowedValueList>")
	assert.Equal(t, 1, strings.Count(string(data), "<argumentList>"))
	assert.Equal(t, 1, strings.Count(string(data), "<allowedValueList>"))

	doc, err := ParseSCPD(data)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.SpecVersion.Major)

	setVolume, ok := doc.Action("SetVolume")
	require.True(t, ok)
	assert.Equal(t, actions[0].Arguments, setVolume.Arguments)

	_, ok = doc.Action("Missing")
	assert.False(t, ok)

	require.Len(t, doc.StateVariables, 3)
	assert.Equal(t, 100, doc.StateVariables[1].AllowedValueRange.Maximum)
	assert.Equal(t, []string{"Master", "LF", "RF"}, doc.StateVariables[2].AllowedValues)
	assert.Nil(t, doc.StateVariables[1].AllowedValues)
	assert.Nil(t, doc.StateVariables[2].AllowedValueRange)

	listPresets, ok := doc.Action("ListPresets")
	require.True(t, ok)
	assert.Empty(t, listPresets.Arguments)
}

func TestSCPDRangeExcludesValueList(t *testing.T) {
	data, err := BuildSCPD(nil, []StateVariable{{
		SendEvents:        "no",
		Name:              "Volume",
		DataType:          "ui2",
		AllowedValues:     []string{"0", "100"},
		AllowedValueRange: &AllowedValueRange{Minimum: 0, Maximum: 100},
	}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `<stateVariable sendEvents="no">`)
	assert.Contains(t, string(data), "<allowedValueRange>")
	assert.NotContains(t, string(data), "allowedValueList")
}
