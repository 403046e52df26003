package extract

import "testing"

func TestReadPagination(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantTotal int
		wantNext  string
	}{
		{
			name:      "wrapper with totalPages",
			payload:   `{"pagination": {"totalPages": 7, "currentPage": 2}}`,
			wantTotal: 7,
		},
		{
			name:      "alias pageCount",
			payload:   `{"paging": {"pageCount": "4"}}`,
			wantTotal: 4,
		},
		{
			name:      "explicit next url",
			payload:   `{"pageInfo": {"nextPage": "/catalog/all?page=3", "totalPages": 9}}`,
			wantTotal: 9,
			wantNext:  "/catalog/all?page=3",
		},
		{
			name:      "nested deep",
			payload:   `{"search": {"results": [], "meta": {"lastPage": 3}}}`,
			wantTotal: 3,
		},
		{
			name:      "nothing found defaults to one",
			payload:   `{"products": []}`,
			wantTotal: 1,
		},
		{
			name:      "absurd total falls back to one",
			payload:   `{"pagination": {"totalPages": 1e300}}`,
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, ok := ParsePayload(tt.payload)
			if !ok {
				t.Fatalf("parse payload")
			}
			pag := ReadPagination(root)
			if pag.TotalPages != tt.wantTotal {
				t.Fatalf("total = %d, want %d", pag.TotalPages, tt.wantTotal)
			}
			if pag.NextURL != tt.wantNext {
				t.Fatalf("next = %q, want %q", pag.NextURL, tt.wantNext)
			}
		})
	}
}
