package fatsecret

import (
	"context"
	"net/url"
	"strconv"
)

// SearchFoods queries the public food database.
func (c *Client) SearchFoods(ctx context.Context, query string, maxResults int) ([]Food, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	var resp struct {
		Foods struct {
			Food oneOrMany[Food] `json:"food"`
		} `json:"foods"`
	}
	err := c.appCall(ctx, "foods.search", url.Values{
		"search_expression": {query},
		"max_results":       {strconv.Itoa(maxResults)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	foods := []Food(resp.Foods.Food)
	for i := range foods {
		if foods[i].Brand == "" {
			foods[i].Brand = "Generic"
		}
	}
	return foods, nil
}

// FoodServings lists the serving options of one food.
func (c *Client) FoodServings(ctx context.Context, foodID string) ([]Serving, error) {
	var resp struct {
		Food struct {
			Servings struct {
				Serving oneOrMany[Serving] `json:"serving"`
			} `json:"servings"`
		} `json:"food"`
	}
	if err := c.appCall(ctx, "food.get.v4", url.Values{"food_id": {foodID}}, &resp); err != nil {
		return nil, err
	}
	return resp.Food.Servings.Serving, nil
}
