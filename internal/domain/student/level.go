package student

// XP представляет очки опыта ученика.
type XP int

// IsValid проверяет, что XP неотрицательный.
func (x XP) IsValid() bool {
	return x >= 0
}

// Level - ступень, выводимая из XP.
type Level int

// XPPerLevel - шаг функции уровней.
const XPPerLevel XP = 1000

// LevelOf вычисляет уровень и порог следующего уровня.
// Определена для xp >= 0; отрицательное значение вызывающий ограничивает нулём сам.
//
//	LevelOf(0)    = (1, 1000)
//	LevelOf(999)  = (1, 1000)
//	LevelOf(1000) = (2, 2000)
//	LevelOf(4500) = (5, 5000)
func LevelOf(xp XP) (Level, XP) {
	level := Level(xp/XPPerLevel) + 1
	return level, XP(level) * XPPerLevel
}

// ProgressInLevel возвращает, сколько XP набрано внутри текущего уровня
// и долю заполнения полосы прогресса (0..1).
func ProgressInLevel(xp XP) (XP, float64) {
	if xp < 0 {
		xp = 0
	}
	within := xp % XPPerLevel
	return within, float64(within) / float64(XPPerLevel)
}
