//go:build rp2040 || rp2350

// Firmware for the Pico robot: H-bridge on GP10..13, VL53L1X on I2C0
// (GP20/21, XSHUT GP19), command console on UART0.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"robotcode-go/drivers/hbridge"
	"robotcode-go/drivers/tof"
	"robotcode-go/hal/platform"
	"robotcode-go/services/console"
	"robotcode-go/services/drive"
	"robotcode-go/services/heartbeat"
	"robotcode-go/services/ranging"
	"robotcode-go/x/serialio"
)

const (
	baud         = 115200
	showInterval = 5 * time.Second
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[robot] boot")

	ctx := context.Background()

	uart := uartx.UART0
	_ = uart.Configure(uartx.UARTConfig{BaudRate: baud, TX: machine.UART0_TX_PIN, RX: machine.UART0_RX_PIN})
	// Console replies, echo and heartbeat reports all share the uart.
	out := serialio.NewWriter(uart)

	board, err := platform.Default()
	if err != nil {
		println("[robot] board:", err.Error())
		return
	}

	motor := hbridge.New(mustPin(board, hbridge.DefaultIN1), mustPin(board, hbridge.DefaultIN2),
		mustPin(board, hbridge.DefaultIN3), mustPin(board, hbridge.DefaultIN4))
	motor.Configure()
	ctrl := drive.NewController(motor, drive.Config{})

	var rng console.Ranger
	port, err := board.Port("i2c0")
	if err != nil {
		println("[robot] i2c0:", err.Error())
	} else {
		tcfg := tof.DefaultConfig()
		tcfg.Output = out
		sensor := tof.Open(port, board.Pins, tcfg)
		if err := sensor.Start(); err != nil {
			println("[robot] rangefinder:", err.Error())
		}
		svc := ranging.New(sensor, ranging.Config{})
		rng = svc
		hb := heartbeat.New(showInterval, func(time.Time) {
			if err := svc.Show(ctx, out); err != nil {
				println("[robot] show:", err.Error())
			}
		})
		go hb.Run(ctx)
	}

	println("[robot] console on uart0")
	con := console.New(ctrl, rng, out)
	for {
		if err := con.Run(ctx, serialio.NewReader(ctx, uart, out)); err != nil {
			println("[robot] console:", err.Error())
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func mustPin(b *platform.Board, n int) hbridge.Pin {
	p, err := b.Pin(n)
	if err != nil {
		panic(err.Error())
	}
	return p
}
