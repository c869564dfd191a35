package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() Definition {
	return Definition{
		ID:                999,
		Key:               "TESTCHAIN",
		Name:              "Test Chain",
		ShortName:         "TST",
		NativeCurrency:    "TST",
		DefaultEndpoint:   "https://rpc.test.example",
		FallbackEndpoints: []string{"https://rpc2.test.example"},
		Contracts:         map[string]string{ContractXENCrypto: "0x01"},
		Events:            map[string]string{EventCoinToolMintTopic: "0x02"},
		Explorer: Explorer{
			Name:       "TestScan",
			BaseURL:    "https://scan.test.example",
			APIURL:     "https://api.scan.test.example/api",
			TxURL:      "https://scan.test.example/tx/",
			AddressURL: "https://scan.test.example/address/",
			BlockURL:   "https://scan.test.example/block/",
		},
		Constants: Constants{GenesisTimestamp: 1665187200, BaseAMP: 3000},
		Databases: map[string]string{DatasetCoinTool: "TST_DB_Cointool"},
	}
}

func TestDefinition_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Definition) {},
		},
		{
			name:    "missing id",
			mutate:  func(d *Definition) { d.ID = 0 },
			wantErr: "id is required",
		},
		{
			name:    "missing key",
			mutate:  func(d *Definition) { d.Key = "" },
			wantErr: "key is required",
		},
		{
			name:    "missing default endpoint",
			mutate:  func(d *Definition) { d.DefaultEndpoint = "" },
			wantErr: "default endpoint is required",
		},
		{
			name:    "missing fallbacks",
			mutate:  func(d *Definition) { d.FallbackEndpoints = nil },
			wantErr: "at least one fallback endpoint is required",
		},
		{
			name:    "missing contracts",
			mutate:  func(d *Definition) { d.Contracts = nil },
			wantErr: "contract addresses are required",
		},
		{
			name:    "missing databases",
			mutate:  func(d *Definition) { d.Databases = nil },
			wantErr: "database namespaces are required",
		},
		{
			name:    "missing explorer",
			mutate:  func(d *Definition) { d.Explorer.APIURL = "" },
			wantErr: "explorer base and API URLs are required",
		},
		{
			name:    "missing genesis",
			mutate:  func(d *Definition) { d.Constants.GenesisTimestamp = 0 },
			wantErr: "genesis timestamp is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def := validDefinition()
			tt.mutate(&def)

			err := def.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestDefinition_Endpoints(t *testing.T) {
	t.Parallel()

	def := validDefinition()
	def.FallbackEndpoints = []string{"https://b.example", "https://c.example"}

	assert.Equal(t,
		[]string{"https://rpc.test.example", "https://b.example", "https://c.example"},
		def.Endpoints(),
	)
}

func TestExplorer_URL(t *testing.T) {
	t.Parallel()

	e := validDefinition().Explorer

	assert.Equal(t, "https://scan.test.example/tx/0xabc", e.URL("tx", "0xabc"))
	assert.Equal(t, "https://scan.test.example/address/0xdef", e.URL("address", "0xdef"))
	assert.Equal(t, "https://scan.test.example/block/123", e.URL("block", "123"))
	assert.Equal(t, "https://scan.test.example", e.URL("bogus", "x"))
}

func TestDefinition_CurrentAMP(t *testing.T) {
	t.Parallel()

	def := validDefinition()
	genesis := time.Unix(def.Constants.GenesisTimestamp, 0)

	assert.Equal(t, int64(3000), def.CurrentAMP(genesis))
	assert.Equal(t, int64(2990), def.CurrentAMP(genesis.AddDate(0, 0, 10)))
	// AMP never goes negative.
	assert.Equal(t, int64(0), def.CurrentAMP(genesis.AddDate(0, 0, 4000)))
	// A clock before genesis counts as day zero.
	assert.Equal(t, int64(3000), def.CurrentAMP(genesis.Add(-time.Hour)))
}

func TestDefinition_Lookups(t *testing.T) {
	t.Parallel()

	def := validDefinition()

	addr, ok := def.ContractAddress(ContractXENCrypto)
	require.True(t, ok)
	assert.Equal(t, "0x01", addr)

	_, ok = def.ContractAddress("NOPE")
	assert.False(t, ok)

	name, ok := def.DatabaseName(DatasetCoinTool)
	require.True(t, ok)
	assert.Equal(t, "TST_DB_Cointool", name)

	_, ok = def.DatabaseName("NOPE")
	assert.False(t, ok)
}
