package tui

const (
	tableVerticalPadding = 4
	splitPanelPadding    = 2
	borderPadding        = 8

	indexColumnWidth  = 9
	streamColumnWidth = 15
	itemsColumnWidth  = 6
	minNamesWidth     = 20

	maxValueDisplayLength = 5000
)
