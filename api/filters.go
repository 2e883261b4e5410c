package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"standarr/models"
)

// filtersFromQuery liest Listenfilter aus Query-Parametern. Mehrwertige Parameter dürfen
// wiederholt oder kommagetrennt angegeben werden.
func filtersFromQuery(c *gin.Context) (models.ListFilters, error) {
	f := models.ListFilters{
		Query:               c.Query("query"),
		Authority:           multi(c, "authority"),
		Status:              multi(c, "status"),
		PublicationDateFrom: c.Query("publication_date_from"),
		PublicationDateTo:   c.Query("publication_date_to"),
		UpdatedFrom:         c.Query("updated_from"),
		UpdatedTo:           c.Query("updated_to"),
	}
	var err error
	if f.DisciplineIDs, err = multiUint(c, "discipline_ids"); err != nil {
		return f, err
	}
	if f.TagIDs, err = multiUint(c, "tag_ids"); err != nil {
		return f, err
	}
	if f.OnlyLatestInForce, err = flag(c, "only_latest_in_force"); err != nil {
		return f, err
	}
	if f.IncludeRelated, err = flag(c, "include_related"); err != nil {
		return f, err
	}
	if f.HasAttachment, err = optionalFlag(c, "has_attachment"); err != nil {
		return f, err
	}
	if f.HasOfficialLink, err = optionalFlag(c, "has_official_link"); err != nil {
		return f, err
	}
	return f, nil
}

func multi(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func multiUint(c *gin.Context, key string) ([]uint, error) {
	var out []uint
	for _, v := range multi(c, key) {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", key, v)
		}
		out = append(out, uint(id))
	}
	return out, nil
}

func flag(c *gin.Context, key string) (bool, error) {
	b, err := optionalFlag(c, key)
	if err != nil || b == nil {
		return false, err
	}
	return *b, nil
}

func optionalFlag(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q", key, raw)
	}
	return &b, nil
}
