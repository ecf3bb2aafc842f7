package service

import "github.com/mezonai/starledger/block"

// BlockRequest is the client payload for a new block. A star makes it owned
// content of Address; otherwise Body is stored as free text.
type BlockRequest struct {
	Body    string       `json:"body"`
	Address string       `json:"address"`
	Star    *StarRequest `json:"star"`
}

// StarRequest carries the story as plain text; it is hex encoded once stored.
type StarRequest struct {
	RA            string `json:"ra"`
	Dec           string `json:"dec"`
	Magnitude     string `json:"mag"`
	Constellation string `json:"cen"`
	Story         string `json:"story"`
}

func (req BlockRequest) ToBody() block.Body {
	if req.Star == nil {
		return block.FreeText(req.Body)
	}
	return block.OwnedContent(req.Address, block.Star{
		RA:            req.Star.RA,
		Dec:           req.Star.Dec,
		Magnitude:     req.Star.Magnitude,
		Constellation: req.Star.Constellation,
		Story:         []byte(req.Star.Story),
	})
}
