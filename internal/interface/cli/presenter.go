// Package cli renders query results as terminal text and runs the
// interactive shell.
package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alem-hub/gradebook/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// Форматирует результаты запросов для терминала. Таблицы выравниваются
// через text/tabwriter.
// ══════════════════════════════════════════════════════════════════════════════

// Presenter пишет отформатированный текст в out.
type Presenter struct {
	out io.Writer
}

// NewPresenter создаёт презентер.
func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

func (p *Presenter) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
}

func (p *Presenter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// ─────────────────────────────────────────────────────────────────────────────
// DASHBOARD
// ─────────────────────────────────────────────────────────────────────────────

// Dashboard печатает сводку по классу.
func (p *Presenter) Dashboard(r *query.DashboardResult) {
	p.printf("Dashboard · %s\n", r.Grade)
	p.printf("Students: %d   Avg attendance: %d%%   Total XP: %s\n",
		r.StudentCount, r.AverageAttendance, formatNumber(r.TotalXP))

	if r.TopStudent != nil {
		p.printf("Top student: %s (%s XP, level %d)\n",
			r.TopStudent.Name, formatNumber(r.TopStudent.XP), r.TopStudent.Level)
	} else {
		p.printf("Top student: -\n")
	}

	if len(r.Assignments) > 0 {
		p.printf("\nAssignment averages\n")
		tw := p.table()
		fmt.Fprintln(tw, "TITLE\tAVG\tSUBMISSIONS")
		for _, a := range r.Assignments {
			fmt.Fprintf(tw, "%s\t%d%%\t%d\n", a.Title, a.Percent, a.Submissions)
		}
		_ = tw.Flush()
	}

	p.printf("\n")
	p.summaries(r.Students)
}

// ─────────────────────────────────────────────────────────────────────────────
// ROSTER
// ─────────────────────────────────────────────────────────────────────────────

// Roster печатает список учеников.
func (p *Presenter) Roster(r *query.ListStudentsResult) {
	p.printf("Roster · %s · %d students\n", r.Grade, len(r.Students))
	p.summaries(r.Students)
}

func (p *Presenter) summaries(students []query.StudentSummaryDTO) {
	if len(students) == 0 {
		p.printf("(no students)\n")
		return
	}
	tw := p.table()
	fmt.Fprintln(tw, "ID\tNAME\tGRADE\tXP\tLEVEL\tPROGRESS\tATTENDANCE\tBADGES")
	for _, s := range students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d%%\t%d\n",
			s.ID, s.Name, s.Grade, formatNumber(s.XP), s.Level,
			progressBar(s.LevelProgress, 10), s.Attendance, len(s.Badges))
	}
	_ = tw.Flush()
}

// ─────────────────────────────────────────────────────────────────────────────
// STUDENT DETAIL
// ─────────────────────────────────────────────────────────────────────────────

// Detail печатает карточку ученика.
func (p *Presenter) Detail(r *query.StudentDetailResult) {
	s := r.Profile
	p.printf("%s (%s) · %s\n", s.Name, s.ID, s.Grade)
	p.printf("Level %d  %s  %s XP, %s to next level\n",
		s.Level, progressBar(s.LevelProgress, 20), formatNumber(s.XP), formatNumber(s.XPToNextLevel))
	p.printf("Attendance %d%%   Class rank %d/%d   Ledger total %s\n",
		s.Attendance, r.ClassRank, r.ClassSize, formatNumber(r.LedgerTotal))
	if len(s.Badges) > 0 {
		p.printf("Badges: %s\n", strings.Join(s.Badges, ", "))
	}
	if len(r.Strengths) > 0 {
		p.printf("Strengths: %s\n", strings.Join(r.Strengths, ", "))
	}
	if len(r.Weaknesses) > 0 {
		p.printf("Weaknesses: %s\n", strings.Join(r.Weaknesses, ", "))
	}
	p.printf("Test average %s   Completion %d%%\n", formatFloat(r.TestAverage), r.CompletionPercent)

	if len(r.Radar) > 0 {
		p.printf("\nSkills\n")
		tw := p.table()
		for _, axis := range r.Radar {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", axis.Subject, formatFloat(axis.Value),
				progressBar(percentOf(axis.Value, axis.FullMark), 10))
		}
		_ = tw.Flush()
	}

	p.printf("\nRecent activity\n")
	if len(r.RecentActivity) == 0 {
		p.printf("(none)\n")
	} else {
		tw := p.table()
		fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tTITLE\tSCORE\tPCT")
		for _, e := range r.RecentActivity {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d%%\n",
				e.ID, e.Date, e.Category, e.Title, e.Score, e.MaxScore, e.Percent)
		}
		_ = tw.Flush()
	}

	if len(r.XPHistory) > 0 {
		p.printf("\nXP history\n")
		tw := p.table()
		for _, c := range r.XPHistory {
			mark := ""
			if c.LeveledUp {
				mark = "level up"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s -> %s\t%s\t%s\n",
				c.Ago, formatDelta(c.Delta), formatNumber(c.OldXP), formatNumber(c.NewXP), c.Reason, mark)
		}
		_ = tw.Flush()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// LEADERBOARD
// ─────────────────────────────────────────────────────────────────────────────

// Leaderboard печатает пьедестал и остальные места.
func (p *Presenter) Leaderboard(r *query.GetLeaderboardResult) {
	p.printf("Leaderboard · %s · %d students · %s XP\n", r.Grade, r.TotalCount, formatNumber(r.TotalXP))
	if r.TotalCount == 0 {
		p.printf("(nobody ranked yet)\n")
		return
	}

	tw := p.table()
	for _, e := range r.Podium {
		p.entry(tw, e)
	}
	if len(r.Rest) > 0 {
		fmt.Fprintln(tw, "\t\t\t")
		for _, e := range r.Rest {
			p.entry(tw, e)
		}
	}
	_ = tw.Flush()

	if v := r.Viewer; v != nil {
		p.printf("\nYou are #%d", v.Entry.Rank)
		if v.InPodium {
			p.printf(" (podium)")
		}
		if v.XPBehind > 0 {
			p.printf(", %s XP behind the next place", formatNumber(v.XPBehind))
		}
		p.printf("\n")
	}
}

func (p *Presenter) entry(tw *tabwriter.Writer, e query.LeaderboardEntryDTO) {
	name := e.Name
	if e.IsViewer {
		name = "→ " + name
	}
	fmt.Fprintf(tw, "%s\t%s\t%s XP\tlvl %d\n", formatRank(e.Rank), name, formatNumber(e.XP), e.Level)
}

// ─────────────────────────────────────────────────────────────────────────────
// RANK
// ─────────────────────────────────────────────────────────────────────────────

// Rank печатает позицию ученика и соседей.
func (p *Presenter) Rank(r *query.StudentRankDTO) {
	p.printf("%s · %s XP\n", r.Name, formatNumber(r.XP))
	p.printf("Class rank %d/%d   Overall %d/%d   Percentile %s\n",
		r.ClassRank, r.ClassSize, r.OverallRank, r.OverallSize, formatFloat(r.Percentile))
	if r.XPToNextRank > 0 {
		p.printf("%s XP to overtake the next place\n", formatNumber(r.XPToNextRank))
	}

	tw := p.table()
	for _, e := range r.Neighbors {
		p.entry(tw, e)
	}
	_ = tw.Flush()
}

// ─────────────────────────────────────────────────────────────────────────────
// MIRROR
// ─────────────────────────────────────────────────────────────────────────────

// Mirror печатает результат сверки зеркала рейтинга.
func (p *Presenter) Mirror(r *query.VerifyMirrorResult) {
	if r.InSync() {
		p.printf("Mirror in sync · %s · %d students\n", r.Grade, r.RosterCount)
		return
	}
	p.printf("Mirror drift · %s · roster %d, mirror %d\n", r.Grade, r.RosterCount, r.MirrorCount)
	tw := p.table()
	fmt.Fprintln(tw, "RANK\tEXPECTED\tMIRROR")
	for _, m := range r.Mismatches {
		fmt.Fprintf(tw, "%d\t%s (%d)\t%s (%d)\n", m.Rank, m.ExpectedID, m.ExpectedXP, m.MirrorID, m.MirrorXP)
	}
	_ = tw.Flush()
}

// ─────────────────────────────────────────────────────────────────────────────
// UTILITY FUNCTIONS
// ─────────────────────────────────────────────────────────────────────────────

// formatRank форматирует позицию с медалью для пьедестала.
func formatRank(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return strconv.Itoa(rank) + "."
	}
}

// formatNumber форматирует число с разделителями тысяч.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}

	var sb strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func formatDelta(d int) string {
	if d > 0 {
		return "+" + formatNumber(d)
	}
	return formatNumber(d)
}

// formatFloat печатает не больше одного знака после запятой.
func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func percentOf(v, full float64) int {
	if full <= 0 {
		return 0
	}
	return int(v / full * 100)
}

// progressBar рисует полосу из width ячеек для pct в 0..100.
func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
