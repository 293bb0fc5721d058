package render_graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Names of the built-in nodes and their slots.
const (
	NodeMainColorTarget  = "main_color_target"
	NodeMainDepthTexture = "main_depth_texture"
	NodeCamera3d         = "camera_3d"
	NodeCamera2d         = "camera_2d"
	NodeMainPass         = "main_pass"

	SlotTexture = "texture"
	SlotCamera  = "camera"

	InputColorAttachment = "color_attachment"
	InputDepthAttachment = "depth_attachment"
	InputCamera3d        = "camera_3d"
	InputCamera2d        = "camera_2d"
)

// BaseConfig toggles the built-in passes. Omitting a pass never breaks passes that do not need it.
type BaseConfig struct {
	AddMainColorTarget                bool       `yaml:"add_main_color_target" toml:"add_main_color_target"`
	AddMainDepthTexture               bool       `yaml:"add_main_depth_texture" toml:"add_main_depth_texture"`
	Add3dCamera                       bool       `yaml:"add_3d_camera" toml:"add_3d_camera"`
	Add2dCamera                       bool       `yaml:"add_2d_camera" toml:"add_2d_camera"`
	AddMainPass                       bool       `yaml:"add_main_pass" toml:"add_main_pass"`
	ConnectMainPassToColorTarget      bool       `yaml:"connect_main_pass_to_color_target" toml:"connect_main_pass_to_color_target"`
	ConnectMainPassToMainDepthTexture bool       `yaml:"connect_main_pass_to_main_depth_texture" toml:"connect_main_pass_to_main_depth_texture"`
	ClearColor                        [4]float64 `yaml:"clear_color" toml:"clear_color"`
}

// DefaultBaseConfig enables every built-in pass.
//
// Returns:
//   - BaseConfig: the default configuration
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		AddMainColorTarget:                true,
		AddMainDepthTexture:               true,
		Add3dCamera:                       true,
		Add2dCamera:                       true,
		AddMainPass:                       true,
		ConnectMainPassToColorTarget:      true,
		ConnectMainPassToMainDepthTexture: true,
		ClearColor:                        [4]float64{0.1, 0.1, 0.1, 1},
	}
}

// ParseBaseConfig decodes a configuration over the defaults, so omitted keys stay enabled.
//
// Parameters:
//   - data: the encoded configuration
//   - format: "yaml" or "toml"
//
// Returns:
//   - BaseConfig: the decoded configuration
//   - error: error if the format is unknown or the data is malformed
func ParseBaseConfig(data []byte, format string) (BaseConfig, error) {
	cfg := DefaultBaseConfig()
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return BaseConfig{}, fmt.Errorf("failed to decode yaml graph config: %w", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return BaseConfig{}, fmt.Errorf("failed to decode toml graph config: %w", err)
		}
	default:
		return BaseConfig{}, fmt.Errorf("unknown graph config format %q", format)
	}
	return cfg, nil
}

// LoadBaseConfig reads a configuration file, choosing the decoder by extension.
//
// Parameters:
//   - path: a .yaml, .yml or .toml file
//
// Returns:
//   - BaseConfig: the decoded configuration
//   - error: error if the file cannot be read or decoded
func LoadBaseConfig(path string) (BaseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BaseConfig{}, fmt.Errorf("failed to read graph config: %w", err)
	}
	return ParseBaseConfig(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// BasePasses holds the logic of the built-in nodes. Only the passes enabled by the
// configuration need logic.
//
// MainColorTarget and MainDepthTexture must write SlotTexture. Camera3d and Camera2d must
// write SlotCamera.
type BasePasses struct {
	MainColorTarget  RunFunc
	MainDepthTexture RunFunc
	Camera3d         RunFunc
	Camera2d         RunFunc
	MainPass         RunFunc
}

// AddBaseGraph adds the built-in nodes enabled by cfg. The main pass reads every attachment
// and camera through optional inputs.
//
// Parameters:
//   - g: the graph to extend
//   - cfg: the pass toggles
//   - passes: the pass logic
//
// Returns:
//   - error: error if an enabled pass has no logic or a node name is taken
func AddBaseGraph(g Graph, cfg BaseConfig, passes BasePasses) error {
	type entry struct {
		enabled bool
		node    Node
	}

	mainPass := Node{Name: NodeMainPass, Run: passes.MainPass}
	if cfg.ConnectMainPassToColorTarget {
		mainPass.Inputs = append(mainPass.Inputs, Input{Name: InputColorAttachment, From: NodeMainColorTarget, Slot: SlotTexture, Optional: true})
	}
	if cfg.ConnectMainPassToMainDepthTexture {
		mainPass.Inputs = append(mainPass.Inputs, Input{Name: InputDepthAttachment, From: NodeMainDepthTexture, Slot: SlotTexture, Optional: true})
	}
	mainPass.Inputs = append(mainPass.Inputs,
		Input{Name: InputCamera3d, From: NodeCamera3d, Slot: SlotCamera, Optional: true},
		Input{Name: InputCamera2d, From: NodeCamera2d, Slot: SlotCamera, Optional: true},
	)

	entries := []entry{
		{cfg.AddMainColorTarget, Node{Name: NodeMainColorTarget, Outputs: []string{SlotTexture}, Run: passes.MainColorTarget}},
		{cfg.AddMainDepthTexture, Node{Name: NodeMainDepthTexture, Outputs: []string{SlotTexture}, Run: passes.MainDepthTexture}},
		{cfg.Add3dCamera, Node{Name: NodeCamera3d, Outputs: []string{SlotCamera}, Run: passes.Camera3d}},
		{cfg.Add2dCamera, Node{Name: NodeCamera2d, Outputs: []string{SlotCamera}, Run: passes.Camera2d}},
		{cfg.AddMainPass, mainPass},
	}
	for _, e := range entries {
		if !e.enabled {
			continue
		}
		if e.node.Run == nil {
			return fmt.Errorf("base pass %s has no logic", e.node.Name)
		}
		if err := g.AddNode(e.node); err != nil {
			return err
		}
	}
	return nil
}
