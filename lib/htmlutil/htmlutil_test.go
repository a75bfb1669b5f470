package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const disambiguationHTML = `<div class="mw-parser-output">
<p><b>Mercury</b> may refer to:</p>
<ul>
<li><a href="/wiki/Mercury_(planet)" title="Mercury (planet)">Mercury (planet)</a>, the closest planet to the Sun</li>
<li><a href="/wiki/Mercury_(element)" title="Mercury (element)">Mercury   (element)</a></li>
<li>The <a href="/wiki/Mercury_(mythology)" title="Mercury (mythology)">Roman god</a>, also see <a href="/wiki/Mercury_(planet)" title="Mercury (planet)">planet</a></li>
<li><a href="/w/index.php?title=Mercury_Lane&amp;action=edit&amp;redlink=1" class="new" title="Mercury Lane (page does not exist)">Mercury Lane</a></li>
<li><a href="https://example.com/mercury">external</a></li>
</ul>
</div>`

func TestListedPageTitles(t *testing.T) {
	titles, err := ListedPageTitles(context.Background(), disambiguationHTML)
	require.NoError(t, err)
	require.Equal(t, []string{
		"Mercury (planet)",
		"Mercury (element)",
		"Mercury (mythology)",
	}, titles)
}

const describedListHTML = `<div class="mw-parser-output">
<div id="toc"><ul>
<li class="toclevel-1 tocsection-1"><a href="#Science"><span class="toctext">Science</span></a></li>
<li class="toclevel-1 tocsection-2"><a href="/wiki/Mercury_(disambiguation)#Mythology" title="Mercury (disambiguation)">Mythology</a></li>
</ul></div>
<ul>
<li><a href="/wiki/Mercury_(planet)" title="Mercury (planet)">Mercury (planet)</a>, the closest planet to the <a href="/wiki/Sun" title="Sun">Sun</a></li>
<li>See also</li>
<li><a href="/wiki/Mercury_(element)" title="Mercury (element)">Mercury</a>, a metal found in <a href="/wiki/Cinnabar" title="Cinnabar">cinnabar</a></li>
</ul>
</div>`

func TestListedPageTitlesSkipsDescriptionsAndContents(t *testing.T) {
	titles, err := ListedPageTitles(context.Background(), describedListHTML)
	require.NoError(t, err)
	require.Equal(t, []string{"Mercury (planet)", "Mercury (element)"}, titles)
}

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(disambiguationHTML))
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), doc.Find("li a"))
	require.Len(t, anchors, 6)
	require.Equal(t, Anchor{
		Text:  "Mercury (element)",
		Href:  "/wiki/Mercury_(element)",
		Title: "Mercury (element)",
	}, anchors[1])
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b c", CleanText("  a \n\t b   c\u0000 "))
}
