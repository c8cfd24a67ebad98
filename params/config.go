package params

import (
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Protocol pins the EIP-712 domain of the external limit-order protocol.
type Protocol struct {
	DomainName        string
	DomainVersion     string
	ChainID           int64
	VerifyingContract string
}

// Endpoints are the external HTTP collaborators.
type Endpoints struct {
	QuoteBaseURL string        // aggregation API (pricing)
	FillBaseURL  string        // limit-order API (submission)
	FillTimeout  time.Duration // per-slice fill call bound
}

// Plan carries the default TWAP strategy parameters; CLI flags and env
// vars override them per run.
type Plan struct {
	TotalAmount *big.Int
	SliceCount  int
	Interval    time.Duration
	OrderExpiry time.Duration
	MakerAsset  string
	TakerAsset  string
}

type Config struct {
	Protocol  Protocol
	Endpoints Endpoints
	Plan      Plan
	DataDir   string // pebble store + JSON log export
	APIAddr   string // status API listen address, empty disables
	LogFile   string
}

func Default() Config {
	return Config{
		Protocol: Protocol{
			DomainName:        "1inch Limit Order Protocol",
			DomainVersion:     "4",
			ChainID:           137, // Polygon mainnet
			VerifyingContract: "0x111111125421cA6dc452d289314280a0f8842A65",
		},
		Endpoints: Endpoints{
			QuoteBaseURL: "https://api.1inch.dev/swap/v6.0/137",
			FillBaseURL:  "https://api.1inch.dev/orderbook/v4.0/137",
			FillTimeout:  30 * time.Second,
		},
		Plan: Plan{
			TotalAmount: big.NewInt(1_000_000), // 1 USDC in 6-decimal units
			SliceCount:  4,
			Interval:    30 * time.Second,
			OrderExpiry: 5 * time.Minute,
			MakerAsset:  "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", // USDC
			TakerAsset:  "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", // WETH
		},
		DataDir: "data",
		APIAddr: ":8080",
		LogFile: "data/twapd.log",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // .env in current directory, optional
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Protocol.ChainID = id
		}
	}
	if v := os.Getenv("VERIFYING_CONTRACT"); v != "" {
		cfg.Protocol.VerifyingContract = v
	}
	if v := os.Getenv("QUOTE_BASE_URL"); v != "" {
		cfg.Endpoints.QuoteBaseURL = v
	}
	if v := os.Getenv("FILL_BASE_URL"); v != "" {
		cfg.Endpoints.FillBaseURL = v
	}
	if v := os.Getenv("FILL_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Endpoints.FillTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("TOTAL_AMOUNT"); v != "" {
		if amount, ok := new(big.Int).SetString(v, 10); ok {
			cfg.Plan.TotalAmount = amount
		}
	}
	if v := os.Getenv("SLICE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Plan.SliceCount = n
		}
	}
	if v := os.Getenv("INTERVAL_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.Plan.Interval = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("ORDER_EXPIRY_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.Plan.OrderExpiry = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("MAKER_ASSET"); v != "" {
		cfg.Plan.MakerAsset = v
	}
	if v := os.Getenv("TAKER_ASSET"); v != "" {
		cfg.Plan.TakerAsset = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	return cfg
}
