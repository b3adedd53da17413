/*
 * wideq
 * Copyright (C) 2026  wideq contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package asciitable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableOutput(t *testing.T) {
	t.Parallel()

	table := MakeTable([]string{"Name", "Type"})
	table.AddRow([]string{"Bedroom AC", "AC"})
	table.AddRow([]string{"Washer", "WASHER"})

	lines := strings.Split(strings.TrimRight(table.AsBuffer().String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "Name")
	require.Contains(t, lines[0], "Type")
	require.Contains(t, lines[1], "----")
	require.Contains(t, lines[2], "Bedroom AC")
	require.Contains(t, lines[3], "WASHER")
}

func TestTableTruncation(t *testing.T) {
	t.Parallel()

	table := MakeTable([]string{"ID", "Model"})
	table.columns[1].MaxCellLength = 8
	table.AddRow([]string{"a", "RV13B_overly_long_model_identifier"})

	out := table.AsBuffer().String()
	require.Contains(t, out, "RV13B_ov...")
	require.NotContains(t, out, "identifier")
}

func TestTruncatedColumnTable(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"dev-1", strings.Repeat("m", 200)},
		{"dev-2", "short"},
	}
	table := MakeTableWithTruncatedColumn([]string{"ID", "Model"}, rows, "Model")

	for _, line := range strings.Split(table.AsBuffer().String(), "\n") {
		require.LessOrEqual(t, len(line), 200)
	}
}
