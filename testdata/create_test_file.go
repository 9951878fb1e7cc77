package main

import (
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"
)

// Generates testdata/sample.xlsx with the features the engine cares
// about: shared strings, numbers, formulas, merges, a hidden sheet
// and a defined name.
func main() {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
	}()

	sheet1 := "People"
	f.SetSheetName("Sheet1", sheet1)

	headers := []string{"Name", "Age", "City", "Department"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue(sheet1, cell, h); err != nil {
			log.Fatal(err)
		}
	}

	data := [][]interface{}{
		{"Alice", 30, "New York", "Engineering"},
		{"Bob", 25, "San Francisco", "Marketing"},
		{"Charlie", 35, "Seattle", "Engineering"},
		{"David", 28, "Austin", "Sales"},
		{"Eve", 32, "Boston", "Engineering"},
	}
	for rowIdx, row := range data {
		for colIdx, val := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				log.Fatal(err)
			}
			if err := f.SetCellValue(sheet1, cell, val); err != nil {
				log.Fatal(err)
			}
		}
	}

	// A formula over the ages and a merged title band.
	if err := f.SetCellFormula(sheet1, "F1", "AVERAGE(B2:B6)"); err != nil {
		log.Fatal(err)
	}
	if err := f.MergeCell(sheet1, "A8", "D8"); err != nil {
		log.Fatal(err)
	}
	if err := f.SetCellValue(sheet1, "A8", "end of roster"); err != nil {
		log.Fatal(err)
	}

	if _, err := f.NewSheet("Notes"); err != nil {
		log.Fatal(err)
	}
	if err := f.SetCellValue("Notes", "A1", "internal"); err != nil {
		log.Fatal(err)
	}
	if err := f.SetSheetVisible("Notes", false); err != nil {
		log.Fatal(err)
	}

	if err := f.SetDefinedName(&excelize.DefinedName{
		Name:     "Ages",
		RefersTo: "People!$B$2:$B$6",
		Scope:    "Workbook",
	}); err != nil {
		log.Fatal(err)
	}

	if err := f.SaveAs("testdata/sample.xlsx"); err != nil {
		log.Fatal(err)
	}
	fmt.Println("wrote testdata/sample.xlsx")
}
