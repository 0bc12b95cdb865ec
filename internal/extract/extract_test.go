package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/repograph/internal/graph"
)

func findEntity(t *testing.T, res graph.FileResult, id string) *graph.Entity {
	t.Helper()
	for _, e := range res.Entities {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("entity %s not found in %s", id, res.Path)
	return nil
}

func hasRelation(res graph.FileResult, source, target string) bool {
	for _, r := range res.Relations {
		if r.SourceID == source && r.TargetID == target && r.Kind == graph.RelationContains {
			return true
		}
	}
	return false
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		path string
		lang Language
		ok   bool
	}{
		{"main.go", LangGo, true},
		{"src/app.PY", LangPython, true},
		{"web/index.tsx", LangTypeScript, true},
		{"lib.rs", LangRust, true},
		{"deploy.sh", LangGeneric, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, c := range cases {
		lang, ok := DetectLanguage(c.path)
		assert.Equal(t, c.ok, ok, c.path)
		if c.ok {
			assert.Equal(t, c.lang, lang, c.path)
		}
	}
}

func TestExtractPython(t *testing.T) {
	src := `import os

class Foo:
    def bar(self):
        pass

def baz():
    pass
`
	res := New(nil).Extract("a.py", []byte(src))

	require.Len(t, res.Entities, 4)
	assert.Equal(t, []string{"os"}, res.Imports)

	file := findEntity(t, res, "file:a.py")
	assert.Equal(t, graph.TypeFile, file.Type)
	assert.Equal(t, "python", file.Metadata["language"])

	foo := findEntity(t, res, "class:a.py:Foo")
	assert.Equal(t, "3", foo.Metadata["line_start"])

	bar := findEntity(t, res, "method:a.py:bar")
	assert.Equal(t, graph.TypeMethod, bar.Type)
	assert.Equal(t, "self", bar.Metadata["args"])
	assert.True(t, hasRelation(res, foo.ID, bar.ID))

	baz := findEntity(t, res, "function:a.py:baz")
	assert.Equal(t, graph.TypeFunction, baz.Type)
}

func TestExtractPythonNestedAndFromImports(t *testing.T) {
	src := `from collections import OrderedDict, defaultdict
import sys as system

class Outer(Base):
    class Inner:
        def deep(self):
            pass

    def shallow(self):
        pass

def top():
    pass
`
	res := New(nil).Extract("m.py", []byte(src))

	assert.ElementsMatch(t, []string{
		"collections.OrderedDict", "collections.defaultdict", "sys",
	}, res.Imports)

	outer := findEntity(t, res, "class:m.py:Outer")
	assert.Equal(t, "Base", outer.Metadata["bases"])
	inner := findEntity(t, res, "class:m.py:Inner")

	// deep belongs to the innermost class, shallow to the outer one after
	// the inner scope closes.
	assert.True(t, hasRelation(res, inner.ID, "method:m.py:deep"))
	assert.True(t, hasRelation(res, outer.ID, "method:m.py:shallow"))
	findEntity(t, res, "function:m.py:top")
}

func TestExtractGo(t *testing.T) {
	src := `package server

import (
	"fmt"
	"net/http"
)

// Server handles requests.
type Server struct {
	Base
	addr string
}

// Handler is implemented by request handlers.
type Handler interface {
	Handle() error
}

// Run starts the server.
func (s *Server) Run(addr string) error {
	return fmt.Errorf("todo %s", addr)
}

func (h http.Header) ignored() {}

func helper(n int) int { return n }
`
	res := New(nil).Extract("server.go", []byte(src))

	assert.ElementsMatch(t, []string{"fmt", "net/http"}, res.Imports)

	srv := findEntity(t, res, "struct:server.go:Server")
	assert.Equal(t, graph.TypeStruct, srv.Type)
	assert.Equal(t, "Server handles requests.", srv.Doc)
	assert.Equal(t, "Base", srv.Metadata["bases"])

	iface := findEntity(t, res, "interface:server.go:Handler")
	assert.Equal(t, graph.TypeInterface, iface.Type)

	run := findEntity(t, res, "method:server.go:Run")
	assert.Equal(t, "Server", run.Metadata["receiver"])
	assert.Equal(t, "Run starts the server.", run.Doc)
	assert.True(t, hasRelation(res, srv.ID, run.ID))

	// Receiver type declared elsewhere: stays a plain function.
	ignored := findEntity(t, res, "function:server.go:ignored")
	assert.Equal(t, graph.TypeFunction, ignored.Type)

	helper := findEntity(t, res, "function:server.go:helper")
	assert.Equal(t, "n", helper.Metadata["args"])
}

func TestExtractGoParseFailure(t *testing.T) {
	res := New(nil).Extract("broken.go", []byte("package \x00 not go at all"))

	require.Len(t, res.Entities, 1)
	assert.Equal(t, "file:broken.go", res.Entities[0].ID)
	assert.Empty(t, res.Relations)
	assert.Empty(t, res.Imports)
}

func TestExtractJavaScript(t *testing.T) {
	src := `import { helper } from './util';
const fs = require('fs');

class Greeter {
  constructor(name) { this.name = name; }
}

function standalone(x) { return x; }
const arrow = (x) => x + 1;
`
	res := New(nil).Extract("app.js", []byte(src))

	assert.ElementsMatch(t, []string{"./util", "fs"}, res.Imports)
	greeter := findEntity(t, res, "class:app.js:Greeter")
	assert.Equal(t, graph.TypeClass, greeter.Type)
	findEntity(t, res, "function:app.js:standalone")
	findEntity(t, res, "function:app.js:arrow")
}

func TestExtractTypeScriptInterface(t *testing.T) {
	src := `import { Point } from './geometry';

interface Shape {
  area(): number;
}

class Circle extends Base {
  radius = 1;
}
`
	res := New(nil).Extract("shapes.ts", []byte(src))

	shape := findEntity(t, res, "interface:shapes.ts:Shape")
	assert.Equal(t, graph.TypeInterface, shape.Type)
	circle := findEntity(t, res, "class:shapes.ts:Circle")
	assert.Equal(t, "Base", circle.Metadata["bases"])
}

func TestExtractRustImplBlocks(t *testing.T) {
	src := `use std::fmt;

pub struct Point {
    x: i32,
}

impl Point {
    pub fn new(x: i32) -> Self {
        Point { x }
    }
}

fn free() {}
`
	res := New(nil).Extract("point.rs", []byte(src))

	assert.Contains(t, res.Imports, "std::fmt")
	point := findEntity(t, res, "struct:point.rs:Point")

	// Functions in the impl block hang off the struct it implements.
	newFn := findEntity(t, res, "method:point.rs:new")
	assert.True(t, hasRelation(res, point.ID, newFn.ID))

	free := findEntity(t, res, "function:point.rs:free")
	assert.Equal(t, graph.TypeFunction, free.Type)
}

func TestExtractJava(t *testing.T) {
	src := `import java.util.List;

public class Account {
    private int balance;

    public int getBalance() {
        return balance;
    }
}

interface Audited {
}
`
	res := New(nil).Extract("Account.java", []byte(src))

	assert.Contains(t, res.Imports, "java.util.List")
	account := findEntity(t, res, "class:Account.java:Account")
	get := findEntity(t, res, "method:Account.java:getBalance")
	assert.True(t, hasRelation(res, account.ID, get.ID))
	findEntity(t, res, "interface:Account.java:Audited")
}

func TestExtractRubyBracelessAssociation(t *testing.T) {
	src := `require 'json'

def helper
end

class Parser
  def parse(input)
  end
end
`
	res := New(nil).Extract("parser.rb", []byte(src))

	assert.Contains(t, res.Imports, "json")
	findEntity(t, res, "function:parser.rb:helper")
	parser := findEntity(t, res, "class:parser.rb:Parser")
	parse := findEntity(t, res, "method:parser.rb:parse")
	assert.True(t, hasRelation(res, parser.ID, parse.ID))
}

func TestControlFlowKeywordsFiltered(t *testing.T) {
	src := `public class Svc {
    public void Run(string[] args) {
    }
        else if (ready) {
        }
}
`
	res := New(nil).Extract("svc.cs", []byte(src))

	for _, e := range res.Entities {
		assert.NotEqual(t, "if", e.Name)
		assert.NotEqual(t, "while", e.Name)
	}
	findEntity(t, res, "method:svc.cs:Run")
}

func TestExtractGenericFallback(t *testing.T) {
	src := `function deploy() {
  echo "deploying"
}
`
	res := New(nil).Extract("deploy.sh", []byte(src))

	file := findEntity(t, res, "file:deploy.sh")
	assert.Equal(t, "generic", file.Metadata["language"])
	findEntity(t, res, "function:deploy.sh:deploy")
}

func TestUnknownExtensionGetsFileEntity(t *testing.T) {
	res := New(nil).Extract("data.xyz", []byte("opaque blob"))

	require.NotEmpty(t, res.Entities)
	file := findEntity(t, res, "file:data.xyz")
	assert.Equal(t, "generic", file.Metadata["language"])
	assert.Equal(t, "opaque blob", file.ContentPreview)
}

func TestFilePreviewBounded(t *testing.T) {
	big := strings.Repeat("x", 4096)
	res := New(nil).Extract("big.xyz", []byte(big))

	file := findEntity(t, res, "file:big.xyz")
	assert.Len(t, file.ContentPreview, filePreviewLen)
	assert.Equal(t, "4096", file.Metadata["size"])
}
