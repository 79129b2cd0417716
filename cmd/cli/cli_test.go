package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"valles-rodes/internal/booking"
	"valles-rodes/internal/config"
)

func testCmd() (*cobra.Command, *bytes.Buffer) {
	log = zap.NewNop()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestQuoteCmd(t *testing.T) {
	cmd, out := testCmd()

	require.NoError(t, quoteCmd.RunE(cmd, []string{"205/55", "r16"}))
	assert.Contains(t, out.String(), "Medida: 205/55 R16")
	assert.Contains(t, out.String(), "Alta gama")
	assert.Contains(t, out.String(), "121 €/rueda")
	assert.Contains(t, out.String(), "81 €/rueda")
}

func TestQuoteCmd_BadSize(t *testing.T) {
	cmd, _ := testCmd()
	assert.Error(t, quoteCmd.RunE(cmd, []string{"grande"}))
}

func TestWindowCmd(t *testing.T) {
	cmd, out := testCmd()
	require.NoError(t, windowCmd.RunE(cmd, []string{"08:00", "14:00"}))
	assert.Contains(t, out.String(), "OK")

	cmd, out = testCmd()
	assert.Error(t, windowCmd.RunE(cmd, []string{"08:00", "13:00"}))
	assert.Contains(t, out.String(), booking.WindowTooShortMessage)
}

func TestLinksCmd(t *testing.T) {
	cfg = &config.Config{PhoneNumber: "+34 600 000 000", WhatsAppText: "Hola"}
	defer func() { cfg = nil }()

	cmd, out := testCmd()
	require.NoError(t, linksCmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "tel:+34 600 000 000")
	assert.Contains(t, out.String(), "https://wa.me/34600000000?text=Hola")
}

func TestAskCmd_WithoutKey(t *testing.T) {
	cfg = &config.Config{GeminiModel: "gemini-1.5-flash"}
	defer func() { cfg = nil }()

	cmd, _ := testCmd()
	assert.Error(t, askCmd.RunE(cmd, []string{"hola"}))
}
