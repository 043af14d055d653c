// Package commission splits a sale commission between the capturing and
// selling agents and tracks its payout.
package commission

// Rate is the commission percentage charged on a sale price.
const Rate = 6.0

// Shares of the commission, in percent, paid to each agent role.
const (
	SingleAgentCapturingShare = 40.0
	SingleAgentSellingShare   = 0.0
	SplitCapturingShare       = 20.0
	SplitSellingShare         = 20.0
)

// Policy names the split applied to a commission.
type Policy string

const (
	PolicySameAgent Policy = "same_agent"
	PolicySplit     Policy = "split"
)

// Breakdown is the outcome of a commission calculation. Amounts are in
// floating currency units and are not rounded.
type Breakdown struct {
	SalePrice            float64 `json:"sale_price"`
	CommissionPercentage float64 `json:"commission_percentage"`
	TotalCommission      float64 `json:"total_commission"`
	SameAgent            bool    `json:"same_agent"`
	CapturingAgentShare  float64 `json:"capturing_agent_share"`
	SellingAgentShare    float64 `json:"selling_agent_share"`
	CapturingAgentAmount float64 `json:"capturing_agent_amount"`
	SellingAgentAmount   float64 `json:"selling_agent_amount"`
}

// Policy reports which split produced b.
func (b Breakdown) Policy() Policy {
	if b.SameAgent {
		return PolicySameAgent
	}
	return PolicySplit
}

// Payout is the total paid to agents. It is the same share of the
// commission whichever policy applies.
func (b Breakdown) Payout() float64 {
	return b.CapturingAgentAmount + b.SellingAgentAmount
}

// Calculate computes the commission on salePrice. A single agent collects
// the whole payout as capturing agent; two agents split it evenly.
func Calculate(salePrice float64, sameAgent bool) Breakdown {
	total := salePrice * Rate / 100
	b := Breakdown{
		SalePrice:            salePrice,
		CommissionPercentage: Rate,
		TotalCommission:      total,
		SameAgent:            sameAgent,
	}
	if sameAgent {
		b.CapturingAgentShare = SingleAgentCapturingShare
		b.SellingAgentShare = SingleAgentSellingShare
	} else {
		b.CapturingAgentShare = SplitCapturingShare
		b.SellingAgentShare = SplitSellingShare
	}
	b.CapturingAgentAmount = total * b.CapturingAgentShare / 100
	b.SellingAgentAmount = total * b.SellingAgentShare / 100
	return b
}
