package common

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names a config file layered over the embedded defaults
const ConfigPathEnvVar = "FNSYNC_CONFIG"

//go:embed config.default.yaml
var defaultConfig []byte

// ConfigManager loads layered configuration into T.
// Layers, lowest priority first: embedded defaults, $FNSYNC_CONFIG, LoadFile calls.
type ConfigManager[T any] struct {
	kf *koanf.Koanf
}

func NewConfigManager[T any]() (*ConfigManager[T], error) {
	cm := &ConfigManager[T]{kf: koanf.New(".")}

	if err := cm.kf.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); path != "" {
		if err := cm.LoadFile(path); err != nil {
			return nil, err
		}
	}

	return cm, nil
}

// LoadFile merges a YAML or JSON file over the current configuration.
// Files ending in .json use the JSON parser; anything else is parsed as YAML.
func (cm *ConfigManager[T]) LoadFile(path string) error {
	var parser koanf.Parser = yaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = json.Parser()
	}
	if err := cm.kf.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// Unmarshal decodes the merged configuration into a fresh T
func (cm *ConfigManager[T]) Unmarshal() (T, error) {
	var c T
	err := cm.kf.UnmarshalWithConf("", &c, koanf.UnmarshalConf{
		Tag: "key",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Metadata:         nil,
			Result:           &c,
			TagName:          "key",
			WeaklyTypedInput: true,
		},
	})
	return c, err
}
