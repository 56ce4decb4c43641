package grid

// GetGridCoords maps a linear cell index onto a grid with the given number
// of columns, returning the column and row.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}
