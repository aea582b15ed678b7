package provider

import "condor-screener/internal/models"

// Polygon payloads. Pointer fields are optional in the API responses.

type lastTradeResponse struct {
	Status  string `json:"status"`
	Results struct {
		Ticker string   `json:"T"`
		Price  *float64 `json:"p"`
		Size   *float64 `json:"s"`
	} `json:"results"`
}

type contractsPage struct {
	Results []struct {
		Ticker         string  `json:"ticker"`
		ContractType   string  `json:"contract_type"`
		ExpirationDate string  `json:"expiration_date"`
		StrikePrice    float64 `json:"strike_price"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

type snapshotPage struct {
	Results []optionSnapshot `json:"results"`
	NextURL string           `json:"next_url"`
}

type optionSnapshot struct {
	Details struct {
		Ticker         string   `json:"ticker"`
		ContractType   string   `json:"contract_type"`
		ExpirationDate string   `json:"expiration_date"`
		StrikePrice    *float64 `json:"strike_price"`
	} `json:"details"`
	LastQuote *struct {
		Bid *float64 `json:"bid"`
		Ask *float64 `json:"ask"`
	} `json:"last_quote"`
	Day *struct {
		Volume *float64 `json:"volume"`
	} `json:"day"`
	OpenInterest      *float64 `json:"open_interest"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
}

// raw converts a snapshot into a provider-neutral chain entry.
func (s optionSnapshot) raw() models.RawContract {
	rc := models.RawContract{
		Ticker:       s.Details.Ticker,
		Expiration:   s.Details.ExpirationDate,
		ContractType: s.Details.ContractType,
		Strike:       s.Details.StrikePrice,
		ImpliedVol:   s.ImpliedVolatility,
	}
	if s.LastQuote != nil {
		rc.Bid = s.LastQuote.Bid
		rc.Ask = s.LastQuote.Ask
	}
	if s.Day != nil && s.Day.Volume != nil {
		rc.Volume = models.Int64(int64(*s.Day.Volume))
	}
	if s.OpenInterest != nil {
		rc.OpenInterest = models.Int64(int64(*s.OpenInterest))
	}
	return rc
}

type earningsResponse struct {
	Results []struct {
		Ticker string `json:"ticker"`
		Date   string `json:"date"`
	} `json:"results"`
}

type openCloseResponse struct {
	Status string   `json:"status"`
	Symbol string   `json:"symbol"`
	From   string   `json:"from"`
	Close  *float64 `json:"close"`
}
