package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type options struct {
	cmd       string
	name      string
	price     string
	capacity  int
	quantity  int
	productID int64
	threshold string
}

func parseOptions(fs *flag.FlagSet, args []string) options {
	var o options
	fs.StringVar(&o.cmd, "cmd", "demo", "command: demo|create|set-qty|rename|delete|show|list|low-stock|value|audit|serve")
	fs.StringVar(&o.name, "name", "", "product name")
	fs.StringVar(&o.price, "price", "0", "product price")
	fs.IntVar(&o.capacity, "capacity", 0, "inventory capacity (for create)")
	fs.IntVar(&o.quantity, "qty", 0, "new on-hand quantity (for set-qty)")
	fs.Int64Var(&o.productID, "id", 0, "product id (for rename, delete)")
	fs.StringVar(&o.threshold, "threshold", "", "low stock ratio in [0, 1]; defaults to WAREHOUSE_LOW_STOCK_THRESHOLD")
	_ = fs.Parse(args)
	return o
}

func (o options) decimalPrice() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(o.price))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid -price %q: %w", o.price, err)
	}
	return price, nil
}

func (o options) thresholdOr(fallback float64) (float64, error) {
	if strings.TrimSpace(o.threshold) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(o.threshold, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid -threshold %q: %w", o.threshold, err)
	}
	return v, nil
}
