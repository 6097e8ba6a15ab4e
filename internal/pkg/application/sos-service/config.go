package sosservice

import (
	"io"

	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/types"
	yaml "gopkg.in/yaml.v2"
)

type BindingConfig struct {
	KVP  bool `yaml:"kvp"`
	POX  bool `yaml:"pox"`
	SOAP bool `yaml:"soap"`
	JSON bool `yaml:"json"`
}

type Config struct {
	Title    string `yaml:"title"`
	Provider string `yaml:"provider"`

	ChunkSize    int `yaml:"chunkSize"`
	CacheWorkers int `yaml:"cacheWorkers"`

	ResponseFormats []string `yaml:"responseFormats"`

	DefaultCRS string   `yaml:"defaultCRS"`
	AllowedCRS []string `yaml:"allowedCRS"`

	Bindings BindingConfig `yaml:"bindings"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = storage.DefaultChunkSize
	}

	if cfg.CacheWorkers <= 0 {
		cfg.CacheWorkers = 4
	}

	if len(cfg.ResponseFormats) == 0 {
		cfg.ResponseFormats = []string{codec.MediaTypeXML, codec.MediaTypeJSON}
	}

	if cfg.DefaultCRS == "" {
		cfg.DefaultCRS = types.DefaultCRS
	}

	if len(cfg.AllowedCRS) == 0 {
		cfg.AllowedCRS = []string{cfg.DefaultCRS}
	}

	if !cfg.Bindings.KVP && !cfg.Bindings.POX && !cfg.Bindings.SOAP && !cfg.Bindings.JSON {
		cfg.Bindings = BindingConfig{KVP: true, POX: true, SOAP: true, JSON: true}
	}

	return cfg, nil
}
