// Package domain contains the core concepts shared by the svg2png and seticon tools.
// Keep this package free of CLI, browser and cache concerns.
package domain
