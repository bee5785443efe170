// cmd/swapquote/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/solana-swapquote/internal/api"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/catalog"
	"github.com/rovshanmuradov/solana-swapquote/internal/quote"
	"github.com/rovshanmuradov/solana-swapquote/internal/swap"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

func main() {
	root := &cobra.Command{
		Use:          "swapquote",
		Short:        "Raydium v4 swap quotation and preparation",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.StringSlice("rpc-list", nil, "RPC endpoints (comma-separated)")
	pf.String("pool-source", "", "pool list file path or URL")
	pf.String("pool-cache-file", "", "pool cache file path")
	pf.String("token-list-file", "", "token list JSON file")
	pf.String("postgres-url", "", "Postgres DSN for the quote journal")
	pf.String("integrity-secret", "", "HMAC secret for response signatures")
	pf.String("priority", string(types.PriorityMedium), "priority profile (low, medium, high, extreme)")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the best direct swap without building a transaction",
		RunE:  runQuote,
	}
	addTradeFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	prepareCmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build an unsigned swap transaction for a wallet",
		RunE:  runPrepare,
	}
	addTradeFlags(prepareCmd)
	prepareCmd.Flags().String("user", "", "wallet address that will sign the transaction")
	_ = prepareCmd.MarkFlagRequired("user")
	root.AddCommand(prepareCmd)

	executeCmd := &cobra.Command{
		Use:   "execute",
		Short: "Submit a prepared swap and wait for confirmation",
		RunE:  runExecute,
	}
	executeCmd.Flags().String("response", "", "prepared response JSON file (- for stdin)")
	executeCmd.Flags().String("signed-tx", "", "signed transaction, base64")
	executeCmd.Flags().String("endpoint", "", "RPC endpoint (default: next of rpc_list)")
	_ = executeCmd.MarkFlagRequired("response")
	root.AddCommand(executeCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "List candidate pools for a pair with impact and liquidity analytics",
		RunE:  runPools,
	}
	poolsCmd.Flags().String("source", "", "input token mint")
	poolsCmd.Flags().String("target", "", "output token mint")
	poolsCmd.Flags().Uint64("amount", 0, "input amount in base units for price impact")
	poolsCmd.Flags().Uint32("depth-bps", 100, "price move for market depth, bps")
	poolsCmd.Flags().Duration("window", catalog.DefaultLiquidityWindow, "liquidity change window")
	poolsCmd.Flags().String("endpoint", "", "RPC endpoint (default: next of rpc_list)")
	_ = poolsCmd.MarkFlagRequired("source")
	_ = poolsCmd.MarkFlagRequired("target")
	root.AddCommand(poolsCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve quote, prepare and execute over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("http-addr", "", "listen address")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "", "input token mint")
	cmd.Flags().String("target", "", "output token mint")
	cmd.Flags().Uint64("amount", 0, "input amount in base units")
	cmd.Flags().Uint16("slippage-bps", 0, "slippage tolerance, bps (default: default_slippage_bps)")
	cmd.Flags().String("endpoint", "", "RPC endpoint (default: next of rpc_list)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("amount")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func quoteRequest(cmd *cobra.Command, a *app) quote.QuoteRequest {
	source, _ := cmd.Flags().GetString("source")
	target, _ := cmd.Flags().GetString("target")
	amount, _ := cmd.Flags().GetUint64("amount")
	return quote.QuoteRequest{
		SourceMint:  source,
		TargetMint:  target,
		Amount:      amount,
		SlippageBps: a.slippage(cmd),
	}
}

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.preparer.QuoteOnly(ctx, swap.QuoteOnlyRequest{
		QuoteRequest: quoteRequest(cmd, a),
		Endpoint:     a.endpoint(cmd),
	})
	return printResponse(cmd.OutOrStdout(), resp)
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, _ := cmd.Flags().GetString("user")
	resp := a.preparer.Prepare(ctx, swap.PrepareRequest{
		QuoteRequest: quoteRequest(cmd, a),
		Endpoint:     a.endpoint(cmd),
		User:         user,
	})
	return printResponse(cmd.OutOrStdout(), resp)
}

func runExecute(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	path, _ := cmd.Flags().GetString("response")
	prepared, err := readResponse(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	signed, _ := cmd.Flags().GetString("signed-tx")
	resp := a.executor.Execute(ctx, swap.ExecuteRequest{
		Response:          prepared,
		SignedTransaction: strings.TrimSpace(signed),
		Endpoint:          a.endpoint(cmd),
	})
	return printResponse(cmd.OutOrStdout(), resp)
}

// poolView строка вывода команды pools
type poolView struct {
	Address        string             `json:"address"`
	BaseMint       string             `json:"baseMint"`
	QuoteMint      string             `json:"quoteMint"`
	BaseReserve    string             `json:"baseReserve"`
	QuoteReserve   string             `json:"quoteReserve"`
	TradeFee       types.Fee          `json:"tradeFee"`
	PriceImpactPct string             `json:"priceImpactPct,omitempty"`
	Depth          *depthView         `json:"depth,omitempty"`
	Liquidity      *liquidityView     `json:"liquidityChange,omitempty"`
	Tokens         [2]types.TokenInfo `json:"tokens"`
}

type depthView struct {
	Bps   uint32 `json:"bps"`
	Upper string `json:"upper"`
	Lower string `json:"lower"`
}

type liquidityView struct {
	Window          string `json:"window"`
	Samples         int    `json:"samples"`
	BaseReservePct  string `json:"baseReservePct,omitempty"`
	QuoteReservePct string `json:"quoteReservePct,omitempty"`
}

func runPools(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sourceArg, _ := cmd.Flags().GetString("source")
	targetArg, _ := cmd.Flags().GetString("target")
	source, err := types.ParseMint("source", sourceArg)
	if err != nil {
		return err
	}
	target, err := types.ParseMint("target", targetArg)
	if err != nil {
		return err
	}

	conn, err := a.connector.Connect(ctx, a.endpoint(cmd), a.cfg.Retries)
	if err != nil {
		return err
	}
	pools, err := a.catalog.ListCandidatePools(ctx, conn, source, target)
	if err != nil {
		return err
	}

	amount, _ := cmd.Flags().GetUint64("amount")
	depthBps, _ := cmd.Flags().GetUint32("depth-bps")
	window, _ := cmd.Flags().GetDuration("window")

	views := make([]poolView, 0, len(pools))
	for _, p := range pools {
		v := poolView{
			Address:      p.Address.String(),
			BaseMint:     p.BaseMint.String(),
			QuoteMint:    p.QuoteMint.String(),
			BaseReserve:  p.BaseReserve.String(),
			QuoteReserve: p.QuoteReserve.String(),
			TradeFee:     p.TradeFee,
			Tokens: [2]types.TokenInfo{
				a.catalog.DescribeToken(ctx, p.BaseMint, p.BaseDecimals),
				a.catalog.DescribeToken(ctx, p.QuoteMint, p.QuoteDecimals),
			},
		}
		if amount > 0 {
			if pct, err := catalog.PriceImpact(p, source, new(big.Int).SetUint64(amount)); err == nil {
				v.PriceImpactPct = pct.FloatString(4)
			}
		}
		if depth, err := catalog.Depth(p, depthBps); err == nil {
			v.Depth = &depthView{Bps: depthBps, Upper: depth.Upper.String(), Lower: depth.Lower.String()}
		}
		if change, err := a.catalog.LiquidityChange(p.Address, window); err == nil {
			v.Liquidity = &liquidityView{
				Window:          window.String(),
				Samples:         change.Samples,
				BaseReservePct:  ratString(change.BaseReservePct),
				QuoteReservePct: ratString(change.QuoteReservePct),
			}
		}
		views = append(views, v)
	}
	return printJSON(cmd.OutOrStdout(), views)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(api.Config{
		Addr:               a.cfg.HTTPAddr,
		DefaultEndpoint:    a.endpoints.Next,
		DefaultSlippageBps: a.cfg.DefaultSlippageBps,
	}, a.preparer, a.executor, a.registry, a.log.Logger)

	err = srv.Run(ctx)
	a.log.Info("Server stopped")
	return err
}

func readResponse(stdin io.Reader, path string) (types.SwapResponse, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return types.SwapResponse{}, fmt.Errorf("open response: %w", err)
		}
		defer f.Close()
		r = f
	}
	var resp types.SwapResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return types.SwapResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func ratString(r *big.Rat) string {
	if r == nil {
		return ""
	}
	return r.FloatString(4)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResponse печатает ответ; ответ с ошибкой даёт ненулевой код выхода
func printResponse(w io.Writer, resp types.SwapResponse) error {
	if err := printJSON(w, resp); err != nil {
		return err
	}
	if !resp.Succeeded() {
		return errors.New(resp.Error)
	}
	return nil
}
