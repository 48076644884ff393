package app

import (
	"fmt"
	"log"

	"github.com/prometheus/procfs"

	"github.com/Speshl/gorrc_robot/internal/models"
)

// ProcessStats reads this process's cpu time and memory for the HUD.
type ProcessStats struct {
	proc procfs.Proc
	ok   bool
}

func NewProcessStats() *ProcessStats {
	proc, err := procfs.Self()
	if err != nil {
		log.Printf("process stats unavailable: %s\n", err.Error())
		return &ProcessStats{}
	}
	return &ProcessStats{proc: proc, ok: true}
}

// Line is empty when /proc cannot be read.
func (s *ProcessStats) Line() string {
	if s == nil || !s.ok {
		return ""
	}
	stat, err := s.proc.Stat()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("cpu: %.1fs rss: %.1fMB", stat.CPUTime(), float64(stat.ResidentMemory())/1_000_000)
}

// BuildHud appends the stats line, if any, after the robot lines.
func BuildHud(lines []string, stats string) models.Hud {
	hud := models.Hud{Lines: append([]string(nil), lines...)}
	if stats != "" {
		hud.Lines = append(hud.Lines, stats)
	}
	return hud
}
