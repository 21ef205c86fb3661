package dotmatrix

import (
	"os"
	"testing"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend/headless"
)

func BenchmarkEmulatorHeadless(b *testing.B) {
	testROMs := []struct {
		name   string
		path   string
		frames int
	}{
		{"dmg_acid_100", "../test-roms/dmg-acid2.gb", 100},
		{"dmg_acid_1000", "../test-roms/dmg-acid2.gb", 1000},
	}

	for _, tc := range testROMs {
		b.Run(tc.name, func(b *testing.B) {
			if _, err := os.Stat(tc.path); os.IsNotExist(err) {
				b.Skipf("ROM file not found: %s", tc.path)
			}

			emu, err := NewWithFile(tc.path)
			if err != nil {
				b.Fatalf("Failed to create emulator: %v", err)
			}

			// Budget larger than the run so the quit event never fires.
			hBackend := headless.New(tc.frames*(b.N+1), headless.SnapshotConfig{})
			if err := hBackend.Init(backend.BackendConfig{Title: "benchmark"}); err != nil {
				b.Fatalf("Failed to initialize backend: %v", err)
			}
			defer hBackend.Cleanup()

			emu.SetFrameLimiter(nil)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				for frameCount := 0; frameCount < tc.frames; frameCount++ {
					emu.RunUntilFrame()
					frame := emu.GetCurrentFrame()
					if _, err := hBackend.Update(frame); err != nil {
						b.Fatalf("Backend update failed: %v", err)
					}
				}
			}
		})
	}
}
