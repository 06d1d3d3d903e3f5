package browser

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"HTTP://WWW.Gov.CN/news#section", "http://www.gov.cn/news"},
		{"https://site.cn:443/a", "https://site.cn/a"},
		{"http://site.cn:80/a", "http://site.cn/a"},
		{"  https://site.cn/a?x=1 ", "https://site.cn/a?x=1"},
	}
	for _, c := range cases {
		got, err := Canonicalize(c.in)
		if err != nil {
			t.Fatalf("Canonicalize(%q) error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	once, err := Canonicalize("HTTP://Site.CN:80/path#frag")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Canonicalize(once)
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Errorf("not idempotent: %q != %q", once, twice)
	}
}

func TestDedupKeyFoldsScheme(t *testing.T) {
	a := DedupKey("http://www.gov.cn/news")
	b := DedupKey("https://www.gov.cn/news")
	if a != b {
		t.Errorf("http/https should share one key: %q vs %q", a, b)
	}
}

func TestRootDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"www.miit.gov.cn", "miit.gov.cn"},
		{"news.cctv.com", "cctv.com"},
		{"a.b.example.com.cn", "example.com.cn"},
		{"gov.cn", "gov.cn"},
		{"localhost", "localhost"},
	}
	for _, c := range cases {
		if got := RootDomain(c.in); got != c.want {
			t.Errorf("RootDomain(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSameRootDomain(t *testing.T) {
	if !SameRootDomain("https://www.miit.gov.cn/a", "https://wap.miit.gov.cn/b") {
		t.Error("subdomains of one root should match")
	}
	if SameRootDomain("https://www.miit.gov.cn/a", "https://www.gov.cn/b") {
		t.Error("miit.gov.cn and gov.cn are different roots")
	}
	if SameRootDomain("://bad", "https://www.gov.cn") {
		t.Error("unparseable URL should not match")
	}
}
