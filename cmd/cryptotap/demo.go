package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zboralski/cryptotap/internal/hooks"
	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/host/sim"
	"github.com/zboralski/cryptotap/internal/sink"
	"github.com/zboralski/cryptotap/internal/trace"
	"github.com/zboralski/cryptotap/internal/ui/colorize"
)

var (
	workers    int
	iterations int
)

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a crypto workload against the in-process runtime",
		Long: `Demo installs the catalog into the built-in runtime and drives a concurrent
workload through it: AES/CBC, HMAC-SHA256, SHA-256, the Flutter AES helper
and RSA public key specs. Results are checked against an uninstrumented run.`,
		Args: cobra.NoArgs,
		RunE: runDemo,
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "concurrent callers")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1, "workload rounds per caller")
	return cmd
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workers < 1 || iterations < 1 {
		return errors.New("workers and iterations must be positive")
	}

	rt := sim.NewStandard()
	want := make([]string, iterations)
	for i := range want {
		if want[i], err = workload(rt, i); err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
	}

	counts := sink.NewCounter()
	out, closeOut, err := openSink(cfg, counts)
	if err != nil {
		return err
	}

	s := hooks.NewSession(rt, out, hooks.WithChannels(channelSet(cfg)))
	n, err := s.Install(cfg.Catalog(hooks.DefaultCatalog))
	if err != nil {
		closeOut()
		return err
	}
	glog.Get().Debug("session", glog.Session(s.ID.String()), zap.Int("bindings", n))

	g, ctx := errgroup.WithContext(cmd.Context())
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < iterations; i++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				got, err := workload(rt, i)
				if err != nil {
					return err
				}
				if got != want[i] {
					return fmt.Errorf("worker %d: instrumented result %q differs from %q", w, got, want[i])
				}
			}
			return nil
		})
	}
	runErr := g.Wait()

	detachErr := s.Detach()
	closeOut()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if detachErr != nil {
		return detachErr
	}

	fmt.Println(summary(n, rt.Calls(), s.Registry().Faults(), counts))
	return nil
}

// workload exercises every bound target once and returns a fingerprint of
// the results.
func workload(rt *sim.Runtime, round int) (string, error) {
	var fp strings.Builder
	step := func(name string, v any, err error) error {
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if b, ok := v.([]byte); ok {
			fmt.Fprintf(&fp, "%s=%x;", name, b)
		} else if v != nil {
			fmt.Fprintf(&fp, "%s=%v;", name, v)
		}
		return nil
	}
	payload := []byte(fmt.Sprintf(`{"user":"alice","round":%d}`, round))

	key, err := rt.New(sim.SecretKeySpec, hooks.SigBytesString, []byte("0123456789abcdef"), "AES")
	if err := step("key", nil, err); err != nil {
		return "", err
	}
	iv, err := rt.New(sim.IvParameterSpec, hooks.SigBytes, []byte("fedcba9876543210"))
	if err := step("iv", nil, err); err != nil {
		return "", err
	}

	c, err := rt.CallStatic(sim.Cipher, "getInstance", hooks.SigString, "AES/CBC/PKCS5Padding")
	if err := step("cipher", nil, err); err != nil {
		return "", err
	}
	cipher := c.(*sim.Object)
	_, err = rt.CallDesc(cipher, "init", sim.DescInitKeyIV, sim.EncryptMode, key, iv)
	if err := step("init", nil, err); err != nil {
		return "", err
	}
	head, err := rt.Call(cipher, "update", hooks.SigBytesRange, payload, 0, 8)
	if err := step("update", head, err); err != nil {
		return "", err
	}
	ct, err := rt.Call(cipher, "doFinal", hooks.SigBytes, payload[8:])
	if err := step("doFinal", ct, err); err != nil {
		return "", err
	}

	macKey, err := rt.New(sim.SecretKeySpec, hooks.SigBytesString, []byte("hmac-secret"), "HmacSHA256")
	if err := step("macKey", nil, err); err != nil {
		return "", err
	}
	m, err := rt.CallStatic(sim.Mac, "getInstance", hooks.SigString, "HmacSHA256")
	if err := step("mac", nil, err); err != nil {
		return "", err
	}
	mac := m.(*sim.Object)
	_, err = rt.CallDesc(mac, "init", sim.DescKey, macKey)
	if err := step("macInit", nil, err); err != nil {
		return "", err
	}
	tag, err := rt.Call(mac, "doFinal", hooks.SigBytes, ct)
	if err := step("hmac", tag, err); err != nil {
		return "", err
	}

	d, err := rt.CallStatic(sim.MessageDigest, "getInstance", hooks.SigString, "SHA-256")
	if err := step("digest", nil, err); err != nil {
		return "", err
	}
	sum, err := rt.Call(d.(*sim.Object), "digest", hooks.SigBytes, payload)
	if err := step("sha256", sum, err); err != nil {
		return "", err
	}

	enc, err := rt.CallStatic(sim.AesSecurity, "encrypt", hooks.SigStringPair, "session-token", "0123456789abcdef")
	if err := step("helperEncrypt", enc, err); err != nil {
		return "", err
	}
	dec, err := rt.CallStatic(sim.AesSecurity, "decrypt", hooks.SigStringPair, enc, "0123456789abcdef")
	if err := step("helperDecrypt", dec, err); err != nil {
		return "", err
	}

	modulus, _ := new(big.Int).SetString("c0ffee1234567890abcdef0fedcba987654321", 16)
	_, err = rt.New(sim.RSAPublicKeySpec, hooks.SigBigIntPair, modulus, big.NewInt(65537))
	if err := step("rsa", nil, err); err != nil {
		return "", err
	}
	_, err = rt.New(sim.X509EncodedKeySpec, hooks.SigBytes, []byte("0\x82\x01\"0\r\x06\t*\x86H\x86\xf7\r\x01\x01\x01"))
	if err := step("x509", nil, err); err != nil {
		return "", err
	}
	return fp.String(), nil
}

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorize.ColorBorder)).
			Padding(0, 1)
	summaryKey = lipgloss.NewStyle().Foreground(lipgloss.Color(colorize.ColorLabel))
	summaryVal = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorize.ColorBinding))
)

func summary(bindings int, calls, faults int64, counts *sink.Counter) string {
	byTag := counts.ByTag()
	tags := make([]trace.Tag, 0, len(byTag))
	for t := range byTag {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	row := func(k string, v any) string {
		if colorize.IsDisabled() {
			return fmt.Sprintf("%-10s %v", k, v)
		}
		return summaryKey.Render(fmt.Sprintf("%-10s", k)) + " " + summaryVal.Render(fmt.Sprint(v))
	}
	lines := []string{
		row("bindings", bindings),
		row("calls", calls),
		row("records", counts.Len()),
		row("faults", faults),
	}
	for _, t := range tags {
		lines = append(lines, row("#"+string(t), byTag[t]))
	}
	body := strings.Join(lines, "\n")
	if colorize.IsDisabled() {
		return body
	}
	return summaryBox.Render(body)
}
