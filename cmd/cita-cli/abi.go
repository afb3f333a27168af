package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/citahub/cita-cli/abi"
	"github.com/citahub/cita-cli/cita"
)

var (
	abiFileFlag = &cli.PathFlag{
		Name:     "file",
		Required: true,
		Usage:    "Contract ABI json file",
	}
	functionFlag = &cli.StringFlag{
		Name:     "name",
		Required: true,
		Usage:    "Function name",
	}
	paramFlag = &cli.StringSliceFlag{
		Name:  "param",
		Usage: "Function argument, repeat in order",
	}
)

func ABICommand() *cli.Command {
	return &cli.Command{
		Name:  "abi",
		Usage: "ABI encode and decode",
		Subcommands: []*cli.Command{
			{
				Name:  "encode",
				Usage: "Encode values, --param type --param value",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "param", Usage: "Alternating types and values"},
				},
				Action: abiEncode,
			},
			{
				Name:  "decode",
				Usage: "Decode data as a list of types",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "type", Required: true, Usage: "Type of the next value, repeat in order"},
					&cli.StringFlag{Name: "data", Required: true, Usage: "Encoded data"},
				},
				Action: abiDecode,
			},
			{
				Name:   "function",
				Usage:  "Encode a call to a function of a contract ABI",
				Flags:  []cli.Flag{abiFileFlag, functionFlag, paramFlag},
				Action: abiFunction,
			},
			{
				Name:  "output",
				Usage: "Decode the return data of a function",
				Flags: []cli.Flag{
					abiFileFlag,
					functionFlag,
					&cli.StringFlag{Name: "data", Required: true, Usage: "Return data"},
				},
				Action: abiOutput,
			},
			{
				Name:  "selector",
				Usage: "Selector of a function signature such as transfer(address,uint256)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "signature", Required: true, Usage: "Function signature"},
				},
				Action: abiSelector,
			},
			{
				Name:  "call",
				Usage: "Call a contract function read-only and decode its outputs",
				Flags: []cli.Flag{
					abiFileFlag,
					functionFlag,
					paramFlag,
					accountFlag,
					&cli.StringFlag{Name: "to", Required: true, Usage: "Contract address"},
				},
				Action: abiCall,
			},
		},
	}
}

func abiEncode(c *cli.Context) error {
	raw := c.StringSlice("param")
	if len(raw)%2 != 0 {
		return fmt.Errorf("--param expects type and value pairs, got %d items", len(raw))
	}
	values := make([]abi.Value, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		t, err := abi.ParseType(raw[i])
		if err != nil {
			return err
		}
		v, err := abi.ParseValue(t, raw[i+1])
		if err != nil {
			return err
		}
		values = append(values, v)
	}
	encoded, err := abi.Encode(values)
	if err != nil {
		return err
	}
	return envFrom(c).printer.Print(hexutil.Encode(encoded))
}

func abiDecode(c *cli.Context) error {
	types, err := abi.ParseTypes(c.StringSlice("type"))
	if err != nil {
		return err
	}
	data, err := cita.ParseHexBytes(c.String("data"))
	if err != nil {
		return err
	}
	values, err := abi.Decode(types, data)
	if err != nil {
		return err
	}
	return envFrom(c).printer.Print(formatValues(values))
}

func loadFunction(c *cli.Context) (abi.Function, error) {
	f, err := os.Open(c.Path("file"))
	if err != nil {
		return abi.Function{}, fmt.Errorf("failed to open ABI file: %w", err)
	}
	defer f.Close()

	contract, err := abi.ParseContractJSON(f)
	if err != nil {
		return abi.Function{}, err
	}
	fn, ok := contract.Function(c.String("name"))
	if !ok {
		return abi.Function{}, fmt.Errorf("function %q not found, have %s", c.String("name"), strings.Join(contract.Names(), ", "))
	}
	return fn, nil
}

func functionArgs(c *cli.Context, fn abi.Function) ([]abi.Value, error) {
	raw := c.StringSlice("param")
	if len(raw) != len(fn.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", fn.Signature(), len(fn.Inputs), len(raw))
	}
	args := make([]abi.Value, len(raw))
	for i, in := range fn.Inputs {
		v, err := abi.ParseValue(in.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func abiFunction(c *cli.Context) error {
	fn, err := loadFunction(c)
	if err != nil {
		return err
	}
	args, err := functionArgs(c, fn)
	if err != nil {
		return err
	}
	data, err := fn.EncodeCall(args)
	if err != nil {
		return err
	}
	return envFrom(c).printer.Print(hexutil.Encode(data))
}

func abiOutput(c *cli.Context) error {
	fn, err := loadFunction(c)
	if err != nil {
		return err
	}
	data, err := cita.ParseHexBytes(c.String("data"))
	if err != nil {
		return err
	}
	values, err := fn.DecodeOutput(data)
	if err != nil {
		return err
	}
	return envFrom(c).printer.Print(formatValues(values))
}

func abiSelector(c *cli.Context) error {
	fn, err := parseSignature(c.String("signature"))
	if err != nil {
		return err
	}
	return envFrom(c).printer.Print(map[string]string{
		"signature": fn.Signature(),
		"selector":  hexutil.Encode(fn.Selector()),
	})
}

func abiCall(c *cli.Context) error {
	env := envFrom(c)
	fn, err := loadFunction(c)
	if err != nil {
		return err
	}
	args, err := functionArgs(c, fn)
	if err != nil {
		return err
	}
	to, err := cita.ParseAddress(c.String("to"))
	if err != nil {
		return err
	}

	// the caller address is optional for a read-only call
	var account *cita.Account
	if len(env.config.Accounts()) > 0 {
		if account, err = env.config.Account(c.String("account")); err != nil {
			return err
		}
	}
	client, err := env.client(c.Context, account)
	if err != nil {
		return err
	}
	defer client.Close()

	values, err := client.CallContract(c.Context, to, fn, args)
	if err != nil {
		return err
	}
	return env.printer.Print(formatValues(values))
}

// parseSignature reads "name(type,...)"
func parseSignature(s string) (abi.Function, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return abi.Function{}, fmt.Errorf("invalid signature %q", s)
	}
	fn := abi.Function{Name: s[:open]}
	if s[open+1:len(s)-1] == "" {
		return fn, nil
	}
	tuple, err := abi.ParseType(s[open:])
	if err != nil {
		return abi.Function{}, fmt.Errorf("invalid signature %q: %w", s, err)
	}
	for _, t := range tuple.Components {
		fn.Inputs = append(fn.Inputs, abi.Argument{Type: t})
	}
	return fn, nil
}

func formatValues(values []abi.Value) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = formatValue(v)
	}
	return out
}

// formatValue maps a value onto JSON friendly types, integers as decimal
// strings and byte types as 0x hex
func formatValue(v abi.Value) interface{} {
	switch v := v.(type) {
	case abi.UintValue:
		return v.Value.String()
	case abi.IntValue:
		return v.Value.String()
	case abi.BoolValue:
		return v.Value
	case abi.AddressValue:
		return v.Value.Hex()
	case abi.FixedBytesValue:
		return hexutil.Encode(v.Value)
	case abi.BytesValue:
		return hexutil.Encode(v.Value)
	case abi.StringValue:
		return v.Value
	case abi.ArrayValue:
		return formatValues(v.Items)
	case abi.TupleValue:
		named := len(v.Fields) > 0
		for _, f := range v.Fields {
			named = named && f.Name != ""
		}
		if !named {
			items := make([]interface{}, len(v.Fields))
			for i, f := range v.Fields {
				items[i] = formatValue(f.Value)
			}
			return items
		}
		fields := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			fields[f.Name] = formatValue(f.Value)
		}
		return fields
	}
	return fmt.Sprint(v)
}
