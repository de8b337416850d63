// Package prompts holds the model prompt templates used across the pipeline.
package prompts

import "fmt"

// QuerySystem instructs a model to translate questions into MongoDB queries
// against the procurement collection.
const QuerySystem = `You are a MongoDB query generator. You create valid MongoDB queries based on natural language questions about a procurement database.

DATABASE DETAILS:
The database has a single collection named 'procurement_data' with the following fields:

Date Fields:
- creation_date (datetime)
- purchase_date (datetime)
- fiscal_year

Reference Numbers:
- lpa_number
- purchase_order_number
- requisition_number

Acquisition Info:
- acquisition_type
- sub_acquisition_type
- acquisition_method
- sub_acquisition_method

Organization Info:
- department_name
- location

Supplier Info:
- supplier_code (integer)
- supplier_name
- supplier_qualifications
- supplier_zip_code
- calcard

Item Details:
- item_name
- item_description
- quantity (float)
- unit_price (float)
- total_price (float)

Classification:
- classification_codes (array of strings)
- normalized_unspsc
- commodity_title
- class
- class_title
- family
- family_title
- segment
- segment_title

QUERY RUNNER REQUIREMENTS:
1. Queries must be valid JSON
2. For aggregation pipelines, use format:
{
    "aggregate": true,
    "pipeline": [
    // pipeline stages here
    ]
}
3. For find queries, use format:
{
    // find query here
}
4. Use double quotes for all strings
5. No trailing commas
6. No single quotes

YOUR TASK:
1. Analyze the natural language question
2. Create a MongoDB query that answers the question
3. Return only the JSON query, properly formatted
4. Do not include any explanations or text outside the JSON
5. Ensure all field names match the snake_case format from the database`

// QueryExamples gives the model few-shot question/query pairs.
const QueryExamples = `Here are some examples of questions and their corresponding queries:

Question: "What departments spent more than $10,000 on IT supplies in 2023?"
{
"aggregate": true,
"pipeline": [
    {
    "$match": {
        "fiscal_year": "2023",
        "item_description": {"$regex": "IT", "$options": "i"},
        "total_price": {"$gt": 10000}
    }
    },
    {
    "$group": {
        "_id": "$department_name",
        "total_spent": {"$sum": "$total_price"}
    }
    }
]
}

Question: "Who are our top 5 suppliers by total purchase amount?"
{
"aggregate": true,
"pipeline": [
    {
    "$group": {
        "_id": "$supplier_name",
        "total_purchases": {"$sum": "$total_price"}
    }
    },
    {
    "$sort": {"total_purchases": -1}
    },
    {
    "$limit": 5
    }
]
}`

// FineTunedSystem is the compact system prompt used with the fine-tuned model,
// which has learned the schema from training and needs only the format rules.
const FineTunedSystem = `You are a MongoDB query generator. Generate valid MongoDB queries based on natural language questions about a procurement database. Return only the JSON query without explanations. Use snake_case for all field names. Handle aggregations with {"aggregate": true, "pipeline": [...]} format and find queries as simple JSON objects.`

// BuildQueryUser builds the user message for a single question.
func BuildQueryUser(question string) string {
	return fmt.Sprintf("%s\n\nGenerate a MongoDB query for this question:\n%s\n\nReturn only the JSON query.", QueryExamples, question)
}

// QuestionContext describes the schema and known values to the question
// generation model.
const QuestionContext = `MongoDB Database Schema for Procurement Data:
- Fields:
    - Dates: creation_date, purchase_date
    - Amounts: unit_price, total_price, quantity
    - Categories: acquisition_type, sub_acquisition_type, acquisition_method, sub_acquisition_method
    - Organization: department_name, location
    - Supplier: supplier_code, supplier_name, supplier_qualifications, supplier_zip_code, calcard
    - Item: item_name, item_description
    - Classification: classification_codes, normalized_unspsc, commodity_title, class, class_title, family, family_title, segment, segment_title
    - Reference: lpa_number, purchase_order_number, requisition_number
    - Temporal: fiscal_year

Known Values:
- Acquisition Types: NON-IT Goods, NON-IT Services, IT Goods, IT Services, IT Telecommunications
- Fiscal Years: 2012-2013, 2013-2014, 2014-2015
- Major Departments: Corrections and Rehabilitation, Water Resources, Correctional Health Care Services

Generate natural language queries that can be translated to MongoDB queries. Focus on:
1. Aggregation queries (grouping, counting, averaging)
2. Find queries (filtering, matching)
3. Complex queries (multiple operations, joins, comparisons)`

// BuildQuestionBatch builds the user message asking for a batch of questions.
func BuildQuestionBatch(batchSize int) string {
	return fmt.Sprintf("Generate %d unique, natural language queries that could be used to analyze this procurement database. Make the queries specific and varied in complexity.", batchSize)
}

// BuildJudge builds the evaluation prompt scoring a generated query against
// its question and execution outcome.
func BuildJudge(question, query string, success bool, message string, resultCount int) string {
	return fmt.Sprintf(`Evaluate this MongoDB query based on the provided schema and execution results.
Be lenient in your scoring and provide constructive feedback.

QUESTION: %s

GENERATED QUERY: %s

EXECUTION RESULTS:
Success: %t
Message: %s
Results Count: %d

DATABASE SCHEMA:
The database has a single collection named 'procurement_data' with fields covering dates (creation_date, purchase_date, fiscal_year), reference numbers (lpa_number, purchase_order_number, requisition_number), acquisition info (acquisition_type, sub_acquisition_type, acquisition_method, sub_acquisition_method), organization (department_name, location), supplier (supplier_code, supplier_name, supplier_qualifications, supplier_zip_code, calcard), item details (item_name, item_description, quantity, unit_price, total_price), and classification (classification_codes, normalized_unspsc, commodity_title, class, class_title, family, family_title, segment, segment_title).

Please evaluate the query and provide scores (1-5, be lenient) in this format:
{
    "syntax_score": 5,
    "syntax_comments": "Valid MongoDB syntax",
    "schema_score": 5,
    "schema_comments": "Correctly uses schema fields",
    "logic_score": 5,
    "logic_comments": "Query logic matches question",
    "completeness_score": 5,
    "completeness_comments": "Addresses all requirements",
    "efficiency_score": 5,
    "efficiency_comments": "Well optimized query",
    "suggestions": "Optional suggestions for improvement"
}`, question, query, success, message, resultCount)
}
