package sosservice

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestLoadConfig(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(config.Title, "City Sensor Observation Service")
	is.Equal(config.Provider, "diwise")
	is.Equal(config.ChunkSize, 250)
}

func TestLoadResponseFormats(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(len(config.ResponseFormats), 2) // should find two response formats
	is.Equal(config.ResponseFormats[0], "application/xml")
}

func TestLoadBindings(t *testing.T) {
	is, config := setupConfigTest(t)

	is.True(config.Bindings.KVP)
	is.True(!config.Bindings.SOAP) // soap should be disabled by the config file
}

func TestThatDefaultsAreAppliedToAnEmptyConfig(t *testing.T) {
	is := is.New(t)

	config, err := LoadConfiguration(bytes.NewBufferString(""))
	is.NoErr(err)

	is.True(config.ChunkSize > 0)
	is.True(config.CacheWorkers > 0)
	is.True(len(config.ResponseFormats) > 0)
	is.True(config.DefaultCRS != "")
	is.True(config.Bindings.KVP) // all bindings should be enabled when none are configured
}

func setupConfigTest(t *testing.T) (*is.I, *Config) {
	is := is.New(t)
	cfgData := bytes.NewBuffer([]byte(configFile))
	config, err := LoadConfiguration(cfgData)
	is.NoErr(err)

	return is, config
}

var configFile string = `
title: City Sensor Observation Service
provider: diwise
chunkSize: 250
cacheWorkers: 2
responseFormats:
  - application/xml
  - application/json
defaultCRS: http://www.opengis.net/def/crs/EPSG/0/4326
bindings:
  kvp: true
  pox: true
  json: true
`
