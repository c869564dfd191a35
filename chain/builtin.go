package chain

// Logical contract names shared by every supported chain.
const (
	ContractXENCrypto    = "XEN_CRYPTO"
	ContractCoinTool     = "COINTOOL"
	ContractXENFTTorrent = "XENFT_TORRENT"
	ContractXENFTStake   = "XENFT_STAKE"
	ContractRemintHelper = "REMINT_HELPER"
)

// Logical event names shared by every supported chain.
const (
	EventCoinToolMintTopic  = "COINTOOL_MINT_TOPIC"
	EventRemintSelector     = "REMINT_SELECTOR"
	EventClaimMintRewardSel = "CLAIM_MINT_REWARD_SELECTOR"
	EventClaimAndStakeSel   = "CLAIM_AND_STAKE_SELECTOR"
)

// Logical dataset names mapped to per-chain database namespaces.
const (
	DatasetCoinTool   = "COINTOOL_DB"
	DatasetXENFT      = "XENFT_DB"
	DatasetXENStake   = "XEN_STAKE_DB"
	DatasetXENFTStake = "XENFT_STAKE_DB"
)

// DefaultChainKey is the chain selected on first run, before the user has
// persisted a preference.
const DefaultChainKey = "ETHEREUM"

// BuiltinDefinitions returns the compiled-in chain table. Manifest files
// loaded at runtime may extend or override it.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			ID:              1,
			Key:             "ETHEREUM",
			Name:            "Ethereum",
			ShortName:       "ETH",
			NativeCurrency:  "ETH",
			DefaultEndpoint: "https://ethereum-rpc.publicnode.com",
			FallbackEndpoints: []string{
				"https://cloudflare-eth.com",
				"https://rpc.ankr.com/eth",
				"https://ethereum.publicnode.com",
			},
			Explorer: Explorer{
				Name:       "Etherscan",
				BaseURL:    "https://etherscan.io",
				APIURL:     "https://api.etherscan.io/api",
				TxURL:      "https://etherscan.io/tx/",
				AddressURL: "https://etherscan.io/address/",
				BlockURL:   "https://etherscan.io/block/",
			},
			Contracts: map[string]string{
				ContractXENCrypto:    "0x06450dEe7FD2Fb8E39061434BAbCFC05599a6Fb8",
				ContractCoinTool:     "0x0dE8bf93dA2f7eecb3d9169422413A9bef4ef628",
				ContractXENFTTorrent: "0x0a252663DBCc0b073063D6420a40319e438Cfa59",
				ContractXENFTStake:   "0xfEdA03b91514D31b435d4E1519Fd9e699C29BbFC",
				ContractRemintHelper: "0xc7ba94123464105a42f0f6c4093f0b16a5ce5c98",
			},
			Events: map[string]string{
				EventCoinToolMintTopic:  "0xe9149e1b5059238baed02fa659dbf4bd932fbcf760a431330df4d934bc942f37",
				EventRemintSelector:     "0xc2580804",
				EventClaimMintRewardSel: "0xa2309ff8",
				EventClaimAndStakeSel:   "0xf2f4eb26",
			},
			Constants: Constants{
				GenesisTimestamp: 1665187200,
				BaseAMP:          3000,
				SaltBytes:        "0x01",
				BatchSaltBytes:   "0x29A2241A010000000000",
			},
			Databases: map[string]string{
				DatasetCoinTool:   "ETH_DB_Cointool",
				DatasetXENFT:      "ETH_DB_Xenft",
				DatasetXENStake:   "ETH_DB_XenStake",
				DatasetXENFTStake: "ETH_DB_XenftStake",
			},
		},
		{
			ID:              8453,
			Key:             "BASE",
			Name:            "Base",
			ShortName:       "BASE",
			NativeCurrency:  "ETH",
			DefaultEndpoint: "https://base-rpc.publicnode.com",
			FallbackEndpoints: []string{
				"https://mainnet.base.org",
				"https://base.gateway.tenderly.co",
				"https://rpc.ankr.com/base",
				"https://base.blockpi.network/v1/rpc/public",
			},
			Explorer: Explorer{
				Name:       "BaseScan",
				BaseURL:    "https://basescan.org",
				APIURL:     "https://api.basescan.org/api",
				TxURL:      "https://basescan.org/tx/",
				AddressURL: "https://basescan.org/address/",
				BlockURL:   "https://basescan.org/block/",
			},
			Contracts: map[string]string{
				ContractXENCrypto:    "0xffcbF84650cE02DaFE96926B37a0ac5E34932fa5",
				ContractCoinTool:     "0x9Ec1C3DcF667f2035FB4CD2eB42A1566fd54d2B7",
				ContractXENFTTorrent: "0x379002701BF6f2862e3dFdd1f96d3C5E1BF450B6",
				ContractXENFTStake:   "0xfC0eC2f733Cf35863178fa0DF759c6CE8C38ee7b",
				ContractRemintHelper: "0xc7ba94123464105a42f0f6c4093f0b16a5ce5c98",
			},
			Events: map[string]string{
				EventCoinToolMintTopic:  "0xe9149e1b5059238baed02fa659dbf4bd932fbcf760a431330df4d934bc942f37",
				EventRemintSelector:     "0xc2580804",
				EventClaimMintRewardSel: "0xa2309ff8",
				EventClaimAndStakeSel:   "0xf2f4eb26",
			},
			Constants: Constants{
				GenesisTimestamp: 1691020800,
				BaseAMP:          3000,
				SaltBytes:        "0x01",
				BatchSaltBytes:   "0x29A2241A010000000000",
			},
			Databases: map[string]string{
				DatasetCoinTool:   "BASE_DB_Cointool",
				DatasetXENFT:      "BASE_DB_Xenft",
				DatasetXENStake:   "BASE_DB_XenStake",
				DatasetXENFTStake: "BASE_DB_XenftStake",
			},
		},
	}
}

// DefaultRegistry returns a registry holding only the built-in chains.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(BuiltinDefinitions()...)
	if err != nil {
		// The built-in table is compile-time data; failing to validate it is
		// a programmer error.
		panic(err)
	}

	return reg
}
