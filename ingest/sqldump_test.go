// SPDX-License-Identifier: MIT

package ingest

import (
	"strings"
	"testing"
)

const redirectDump = "CREATE TABLE `redirect` (\n" +
	"  `rd_from` int NOT NULL,\n" +
	"  `rd_namespace` int NOT NULL,\n" +
	"  `rd_title` varbinary(255) NOT NULL\n" +
	");\n" +
	"INSERT INTO `redirect` VALUES (10,0,'Tokyo'),(11,1,'Talk_page'),(12,0,'Japan');\n"

func TestReadRedirectsDumpFiltersToNamespaceZero(t *testing.T) {
	rows, err := ReadRedirectsDump(strings.NewReader(redirectDump))
	if err != nil {
		t.Fatalf("ReadRedirectsDump: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}
	if rows[0].FromPageID != "10" || rows[0].ToTitle != "Tokyo" {
		t.Errorf("got %+v", rows[0])
	}
	if rows[1].FromPageID != "12" || rows[1].ToTitle != "Japan" {
		t.Errorf("got %+v", rows[1])
	}
}

const pageDump = "CREATE TABLE `page` (\n" +
	"  `page_id` int NOT NULL,\n" +
	"  `page_namespace` int NOT NULL,\n" +
	"  `page_title` varbinary(255) NOT NULL,\n" +
	"  `page_is_redirect` tinyint NOT NULL\n" +
	");\n" +
	"INSERT INTO `page` VALUES (1,0,'Tokyo',0),(2,0,'Edo',1);\n"

func TestReadPagesDumpMarksRedirects(t *testing.T) {
	rows, err := ReadPagesDump(strings.NewReader(pageDump))
	if err != nil {
		t.Fatalf("ReadPagesDump: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].Title != "Edo" || !rows[1].IsRedirect {
		t.Errorf("got %+v, want Edo marked as redirect", rows[1])
	}
}
