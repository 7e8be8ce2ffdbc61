package normalize

import "testing"

func TestExtractSkills_WholeWord(t *testing.T) {
	desc := "Vous maîtrisez SQL, Python et Power BI. Expérience AWS (S3, Lambda) appréciée."
	flags := ExtractSkills(desc)

	for _, col := range []string{"sql", "python", "power_bi", "aws", "s3", "lambda"} {
		if !flags[col] {
			t.Errorf("expected %s to be flagged", col)
		}
	}
	for _, col := range []string{"pyspark", "spark", "sas", "git", "java"} {
		if flags[col] {
			t.Errorf("expected %s not to be flagged", col)
		}
	}
}

func TestExtractSkills_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		desc   string
		column string
		want   bool
	}{
		{"hyphenated compound", "une plateforme sas-based", "sas", false},
		{"embedded in word", "poste basé au kansas", "sas", false},
		{"standalone", "outils: SAS, R", "sas", true},
		{"prefix of longer word", "gitlab ci", "git", false},
		{"gitlab itself", "gitlab ci", "gitlab", true},
		{"accented neighbour", "éspark", "spark", false},
		{"multi-word across spaces", "power   bi", "power_bi", true},
		{"multi-word across newline", "machine\nlearning", "machine_learning", true},
		{"start of text", "python", "python", true},
		{"punctuation", "(docker)", "docker", true},
		{"javascript is not java", "javascript", "java", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSkills(tt.desc)[tt.column]; got != tt.want {
				t.Errorf("ExtractSkills(%q)[%s] = %v, want %v", tt.desc, tt.column, got, tt.want)
			}
		})
	}
}

func TestExtractSkills_EmitsEveryColumn(t *testing.T) {
	flags := ExtractSkills("")
	if len(flags) != len(SkillColumns()) {
		t.Fatalf("expected %d flags, got %d", len(SkillColumns()), len(flags))
	}
	for _, col := range SkillColumns() {
		if v, ok := flags[col]; !ok || v {
			t.Errorf("column %s: present=%v value=%v, want present and false", col, ok, v)
		}
	}
}

func TestSkillColumns_Underscored(t *testing.T) {
	want := map[string]bool{
		"power_bi": true, "data_warehouse": true, "data_lake": true, "power_query": true,
		"machine_learning": true, "deep_learning": true, "data_governance": true, "azure_devops": true,
	}
	seen := make(map[string]bool)
	for _, col := range SkillColumns() {
		if seen[col] {
			t.Errorf("duplicate column %s", col)
		}
		seen[col] = true
		for _, r := range col {
			if r == ' ' {
				t.Errorf("column %q contains a space", col)
			}
		}
	}
	for col := range want {
		if !seen[col] {
			t.Errorf("missing column %s", col)
		}
	}
	if len(seen) != 63 {
		t.Errorf("expected 63 skill columns, got %d", len(seen))
	}
}
