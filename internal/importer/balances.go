package importer

import (
	"github.com/MrJamesThe3rd/tally/internal/balance"
	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// closingBalances keeps, per account, the balance cell of the latest dated row reporting one.
// Rows sharing a date resolve to the later row.
type closingBalances struct {
	byAccount map[string]int
	list      []balance.Balance
}

func (c *closingBalances) observe(account, cell string, p transaction.CreateParams) {
	if cell == "" {
		return
	}

	amount, err := csvrow.ParseAmount(cell)
	if err != nil {
		return
	}

	b := balance.Balance{
		Account:   account,
		Amount:    amount.Shift(2).Round(0).IntPart(),
		Currency:  p.Currency,
		UpdatedAt: p.Date,
	}

	if c.byAccount == nil {
		c.byAccount = make(map[string]int)
	}

	i, ok := c.byAccount[account]
	if !ok {
		c.byAccount[account] = len(c.list)
		c.list = append(c.list, b)

		return
	}

	if !p.Date.Before(c.list[i].UpdatedAt) {
		c.list[i] = b
	}
}
